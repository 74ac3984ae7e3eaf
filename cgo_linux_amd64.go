//go:build cgo && linux && amd64

package icsneo

/*
#cgo LDFLAGS: -licsneoc
*/
import "C"
