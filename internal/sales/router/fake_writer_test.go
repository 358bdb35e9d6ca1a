package router

import (
	"context"

	"github.com/tilldesk/register-backend/internal/sales/types"
)

type fakeWriter struct {
	inserted []types.SalesFactRow
	err      error
}

func (f *fakeWriter) InsertSalesFact(_ context.Context, row types.SalesFactRow) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, row)
	return nil
}
