// Package pricefile reads price files of the shape {"metadata": {...}, "items": [...]}.
//
// Files can be large, so nothing here loads a whole document. The scanner walks the
// token stream: ExtractMetadata stops once the header is decoded, ValidateStructure
// only checks that both top-level fields exist, and ParseStream decodes items one at a
// time, reporting bad items through a callback instead of aborting.
//
// Prices are decimal.Decimal and stock counts int64, so no value passes through a float.
package pricefile
