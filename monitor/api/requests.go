package api

import (
	"github.com/absmach/fldash/pkg/auth"
	pkgerrors "github.com/absmach/fldash/pkg/errors"
)

type loginReq struct {
	Role auth.Role `json:"role"`
}

func (req *loginReq) validate() error {
	if !req.Role.Valid() {
		return auth.ErrUnknownRole
	}

	return nil
}

type emptyReq struct{}

type clientReq struct {
	id string
}

func (req *clientReq) validate() error {
	if req.id == "" {
		return pkgerrors.ErrEmptyID
	}

	return nil
}
