package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"

	"shopkeep/m/domain"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.InvalidInput("bad"), http.StatusBadRequest},
		{errors.NotValidf("row"), http.StatusBadRequest},
		{domain.WithKind(errors.New("dup"), domain.ErrDuplicateSale), http.StatusConflict},
		{domain.WithKind(errors.New("short"), domain.ErrInsufficientStock), http.StatusConflict},
		{errors.AlreadyExistsf("product"), http.StatusConflict},
		{domain.WithKind(errors.NotFoundf("sale"), domain.ErrSaleNotFound), http.StatusNotFound},
		{domain.WithKind(errors.NotFoundf("product"), domain.ErrProductNotFound), http.StatusNotFound},
		{domain.Persistence(errors.New("disk"), "writing"), http.StatusInternalServerError},
		{domain.Persistence(context.DeadlineExceeded, "writing"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}
