// Package sellers keeps the company directory that gates file ownership.
// A file is only processed when its folder resolves to an active seller.
package sellers
