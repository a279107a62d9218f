// Package stock applies stock levels pushed by suppliers or storefront webhooks.
//
// Syncer.Sync compares each reported quantity with the stored one. Changed
// products get a history row, and a low_stock or out_of_stock alert when the
// new quantity reaches the tenant's threshold (DefaultLowStockThreshold when
// unset). All writes of one call go to the store in a single Apply.
package stock
