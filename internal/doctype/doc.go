// Package doctype maps file extensions onto the editor's document families.
//
// The editor boots one of five applications (word, cell, slide, draw, pdf)
// and the family is chosen from the file extension. Unknown extensions open
// in the word processor.
package doctype
