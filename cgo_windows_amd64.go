//go:build cgo && windows && amd64

package icsneo

/*
#cgo LDFLAGS: -licsneoc
*/
import "C"
