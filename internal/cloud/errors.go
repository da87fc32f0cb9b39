// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package cloud

import (
	"errors"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/smithy-go"
)

// routeNotFoundCode is the EC2 error for a replace against a route that
// does not exist yet; the adapter falls through to a create on it.
const routeNotFoundCode = "InvalidRoute.NotFound"

var transientCodes = map[string]struct{}{
	"Throttling":                {},
	"ThrottlingException":       {},
	"RequestLimitExceeded":      {},
	"RequestThrottled":          {},
	"RequestThrottledException": {},
	"TooManyRequestsException":  {},
	"InternalError":             {},
	"InternalFailure":           {},
	"ServiceUnavailable":        {},
	"Unavailable":               {},
	"RequestExpired":            {},
}

var permanentCodes = map[string]struct{}{
	"UnauthorizedOperation": {},
	"AuthFailure":           {},
	"AccessDenied":          {},
	"AccessDeniedException": {},
	"OptInRequired":         {},
	"ValidationError":       {},
	"MissingParameter":      {},
}

// classify converts an EC2 call failure into a *cloud.Error. Provider 5xx
// and throttling are transient; authorization and malformed input are
// permanent; unresolvable identifiers are not-found. Anything the API
// never answered (connection resets, timeouts) counts as transient so the
// reconcile loop retries it.
func classify(op string, err error) error {
	kind := ErrorKindTransient

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		switch {
		case strings.HasSuffix(code, ".NotFound"):
			kind = ErrorKindNotFound
		case isTransient(code):
			kind = ErrorKindTransient
		case isPermanent(code), strings.HasPrefix(code, "InvalidParameter"):
			kind = ErrorKindPermanent
		case apiErr.ErrorFault() == smithy.FaultServer:
			kind = ErrorKindTransient
		default:
			kind = ErrorKindPermanent
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() >= 500 {
		kind = ErrorKindTransient
	}

	return &Error{Kind: kind, Op: op, Err: err}
}

func isTransient(code string) bool {
	_, ok := transientCodes[code]
	return ok
}

func isPermanent(code string) bool {
	_, ok := permanentCodes[code]
	return ok
}

// isRouteNotFound reports whether err is the EC2 route-does-not-exist
// answer to a ReplaceRoute call.
func isRouteNotFound(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == routeNotFoundCode
}
