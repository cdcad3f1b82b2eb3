// Package docreader validates uploaded document bytes against their declared
// format and extracts plain text for the analysis stages. PDF extraction uses
// github.com/ledongthuc/pdf; plain text documents pass through after a UTF-8
// check.
package docreader
