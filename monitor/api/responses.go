package api

import (
	"net/http"

	"github.com/absmach/fldash/monitor"
	"github.com/absmach/fldash/pkg/auth"
	"github.com/absmach/supermq"
)

var (
	_ supermq.Response = (*sessionRes)(nil)
	_ supermq.Response = (*logoutRes)(nil)
	_ supermq.Response = (*serverStateRes)(nil)
	_ supermq.Response = (*clientStateRes)(nil)
	_ supermq.Response = (*redirectRes)(nil)
)

type sessionRes struct {
	Session auth.Session  `json:"session"`
	Route   monitor.Route `json:"route"`
	Path    string        `json:"path"`
}

func (res sessionRes) Code() int {
	return http.StatusOK
}

func (res sessionRes) Headers() map[string]string {
	return map[string]string{}
}

func (res sessionRes) Empty() bool {
	return false
}

type logoutRes struct{}

func (res logoutRes) Code() int {
	return http.StatusNoContent
}

func (res logoutRes) Headers() map[string]string {
	return map[string]string{}
}

func (res logoutRes) Empty() bool {
	return true
}

type serverStateRes struct {
	monitor.ServerState
}

func (res serverStateRes) Code() int {
	return http.StatusOK
}

func (res serverStateRes) Headers() map[string]string {
	return map[string]string{}
}

func (res serverStateRes) Empty() bool {
	return false
}

type clientStateRes struct {
	monitor.ClientState
}

func (res clientStateRes) Code() int {
	return http.StatusOK
}

func (res clientStateRes) Headers() map[string]string {
	return map[string]string{}
}

func (res clientStateRes) Empty() bool {
	return false
}

// redirectRes is returned when the session may not enter the requested view.
type redirectRes struct {
	location string
}

func (res redirectRes) Code() int {
	return http.StatusFound
}

func (res redirectRes) Headers() map[string]string {
	return map[string]string{
		"Location": res.location,
	}
}

func (res redirectRes) Empty() bool {
	return true
}
