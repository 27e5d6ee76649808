package ngxhttp

import (
	"github.com/caffeineduck/ngxmod/abi"
	"github.com/caffeineduck/ngxmod/core"
)

// HTTPStatus is an HTTP response status code in the host's convention.
type HTTPStatus abi.Uint

const (
	HTTPOK                  = HTTPStatus(abi.HTTPOK)
	HTTPCreated             = HTTPStatus(abi.HTTPCreated)
	HTTPNoContent           = HTTPStatus(abi.HTTPNoContent)
	HTTPMovedPermanently    = HTTPStatus(abi.HTTPMovedPermanently)
	HTTPMovedTemporarily    = HTTPStatus(abi.HTTPMovedTemporarily)
	HTTPNotModified         = HTTPStatus(abi.HTTPNotModified)
	HTTPBadRequest          = HTTPStatus(abi.HTTPBadRequest)
	HTTPUnauthorized        = HTTPStatus(abi.HTTPUnauthorized)
	HTTPForbidden           = HTTPStatus(abi.HTTPForbidden)
	HTTPNotFound            = HTTPStatus(abi.HTTPNotFound)
	HTTPNotAllowed          = HTTPStatus(abi.HTTPNotAllowed)
	HTTPTooManyRequests     = HTTPStatus(abi.HTTPTooManyRequests)
	HTTPInternalServerError = HTTPStatus(abi.HTTPInternalServerError)
	HTTPServiceUnavailable  = HTTPStatus(abi.HTTPServiceUnavailable)
	HTTPGatewayTimeOut      = HTTPStatus(abi.HTTPGatewayTimeOut)
)

// Status converts h into a handler result.
func (h HTTPStatus) Status() core.Status {
	return core.Status(h)
}

func (h HTTPStatus) Native() abi.Uint {
	return abi.Uint(h)
}
