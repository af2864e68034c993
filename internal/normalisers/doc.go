// Package normalisers provides implementations of the Normaliser interface.
// A normaliser turns a validated corpus record into a Document whose text
// is ready for segmentation.
package normalisers
