//go:build cgo && darwin && arm64

package icsneo

/*
#cgo LDFLAGS: -licsneoc
*/
import "C"
