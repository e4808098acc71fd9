package model

import core "cic2nf/internal/core/model"

// RowSource yields the rows of one input file in order.
type RowSource interface {
	// Next returns the next row, or io.EOF once the input is exhausted.
	Next() (core.RawRow, error)

	// Line returns the 1-based source line of the row last returned by Next.
	Line() int

	// Name returns the base name of the input, used to infer time-of-day hints.
	Name() string
}
