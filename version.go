package icsneo

import "fmt"

// Version identifies the linked native library build.
type Version struct {
	Major       uint16
	Minor       uint16
	Patch       uint16
	Metadata    string
	BuildBranch string
	BuildTag    string
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// LibraryVersion reports the version of the loaded native library. On
// stub builds it returns the zero Version.
func LibraryVersion() Version {
	return lib.getVersion()
}
