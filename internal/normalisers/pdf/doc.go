// Package pdf provides a Normaliser that extracts PDF text with the
// poppler pdftotext tool.
package pdf
