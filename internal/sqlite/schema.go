package sqlite

// Schema DDL. Both collections share one table; collection is the state flag
// and position preserves stored order.
const (
	createRecipes = `CREATE TABLE IF NOT EXISTS recipes (
    collection TEXT NOT NULL,
    position INTEGER NOT NULL,
    recipe_id TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    PRIMARY KEY (collection, position)
);`

	idxRecipesID    = `CREATE INDEX IF NOT EXISTS idx_recipes_id ON recipes(recipe_id);`
	idxRecipesTitle = `CREATE INDEX IF NOT EXISTS idx_recipes_title ON recipes(title);`
)

// schemaDDL lists all statements in execution order.
var schemaDDL = []string{
	createRecipes,
	idxRecipesID,
	idxRecipesTitle,
}
