// Package prepurchase holds the record-to-item transformation for Vendit
// pre-purchase orders.
//
// Inbound records arrive either as a direct order line or as a composite buy
// order carrying nested line items. Classify decides the shape once;
// ItemBuilder and OrderSplitter turn the record into NormalizedItem values
// grouped into Payload submission units. Nothing in this package performs I/O.
// Dropped items are reported as Skip values rather than errors, so callers
// decide how to log or count them.
package prepurchase
