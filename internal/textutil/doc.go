// Package textutil normalises user supplied names before they reach the
// filesystem.
package textutil
