package store

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price TEXT NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_products_name ON products(name)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		total_price TEXT NOT NULL DEFAULT '0',
		status TEXT NOT NULL DEFAULT 'pending'
	)`,

	`CREATE TABLE IF NOT EXISTS order_products (
		order_id INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id INTEGER NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		line_no INTEGER NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_order_products_product_id ON order_products(product_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price NUMERIC(12, 2) NOT NULL,
		stock INTEGER NOT NULL CHECK (stock >= 0)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_products_name ON products(name)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id BIGSERIAL PRIMARY KEY,
		total_price NUMERIC(12, 2) NOT NULL DEFAULT 0,
		status VARCHAR(32) NOT NULL DEFAULT 'pending'
	)`,

	`CREATE TABLE IF NOT EXISTS order_products (
		order_id BIGINT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		product_id BIGINT NOT NULL REFERENCES products(id),
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		line_no INTEGER NOT NULL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS ix_order_products_product_id ON order_products(product_id)`,
}
