// internal/store/queries.go
package store

// Aggregate counts are fetched in a single round trip per actor. The scalar
// subqueries share one scan so the resolver cost stays at one query.
const ownerCountsQuery = `
SELECT
	(SELECT COUNT(*) FROM products WHERE actor_id = $1) AS products_total,
	(SELECT COUNT(*) FROM products WHERE actor_id = $1 AND status = 'active') AS products_active,
	(SELECT COUNT(*) FROM products WHERE actor_id = $1 AND stock <= min_stock) AS products_low,
	(SELECT COUNT(*) FROM orders WHERE owner_id = $1) AS orders_total,
	(SELECT COUNT(*) FROM orders WHERE owner_id = $1 AND status IN ('open', 'pending')) AS orders_open,
	(SELECT COUNT(*) FROM orders WHERE owner_id = $1 AND status IN ('completed', 'fulfilled')) AS orders_completed,
	(SELECT COUNT(*) FROM partner_links WHERE owner_id = $1 AND status = 'active') AS partner_links`

const supplierCountsQuery = `
SELECT
	(SELECT COUNT(*) FROM products WHERE actor_id = $1) AS products_total,
	(SELECT COUNT(*) FROM products WHERE actor_id = $1 AND status = 'active') AS products_active,
	(SELECT COUNT(*) FROM products WHERE actor_id = $1 AND stock <= min_stock) AS products_low,
	(SELECT COUNT(*) FROM orders WHERE supplier_id = $1) AS orders_total,
	(SELECT COUNT(*) FROM orders WHERE supplier_id = $1 AND status IN ('open', 'pending')) AS orders_open,
	(SELECT COUNT(*) FROM orders WHERE supplier_id = $1 AND status IN ('completed', 'fulfilled')) AS orders_completed,
	(SELECT COUNT(*) FROM partner_links WHERE supplier_id = $1 AND status = 'active') AS partner_links`

const ownerOrdersQuery = `
SELECT reference, status, counterparty, total, placed_at
FROM orders
WHERE owner_id = $1 AND status = ANY($2)
ORDER BY placed_at DESC
LIMIT $3`

const supplierOrdersQuery = `
SELECT reference, status, counterparty, total, placed_at
FROM orders
WHERE supplier_id = $1 AND status = ANY($2)
ORDER BY placed_at DESC
LIMIT $3`

const ownerLastOrderQuery = `
SELECT reference, status, counterparty, total, placed_at
FROM orders
WHERE owner_id = $1
ORDER BY placed_at DESC
LIMIT 1`

const supplierLastOrderQuery = `
SELECT reference, status, counterparty, total, placed_at
FROM orders
WHERE supplier_id = $1
ORDER BY placed_at DESC
LIMIT 1`

const orderByReferenceQuery = `
SELECT reference, status, counterparty, total, placed_at
FROM orders
WHERE reference = $2 AND (owner_id = $1 OR supplier_id = $1)`

const lowStockQuery = `
SELECT name, sku, stock, min_stock
FROM products
WHERE actor_id = $1 AND stock <= min_stock
ORDER BY stock ASC
LIMIT $2`
