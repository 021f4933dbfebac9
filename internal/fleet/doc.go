// Package fleet holds the unit controllers of one building and answers
// inventory and placement queries about them.
package fleet
