//go:build cgo && darwin && amd64

package icsneo

/*
#cgo LDFLAGS: -licsneoc
*/
import "C"
