// Package pkgerror is the error vocabulary shared by stores, usecases and
// HTTP handlers.
//
// Usecases return *Error values built with the New* constructors; the router
// turns them into a status code and a JSON body. Server causes stay in the
// logs, validation causes are echoed back as error.detail.
package pkgerror
