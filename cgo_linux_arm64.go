//go:build cgo && linux && arm64

package icsneo

/*
#cgo LDFLAGS: -licsneoc
*/
import "C"
