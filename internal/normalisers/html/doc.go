// Package html provides a Normaliser implementation for HTML documents.
// Pages are parsed with golang.org/x/net/html and reduced to readable text:
// scripts, styles and other non-content elements are dropped, block
// elements become paragraph breaks and entities are decoded by the parser.
package html
