// Package utils provides small helpers shared across the price pipeline: loose type
// conversion for notification payloads and company name normalization.
package utils
