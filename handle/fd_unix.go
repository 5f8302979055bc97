//go:build unix

package handle

import (
	"golang.org/x/sys/unix"
)

// FDTable treats unix file descriptors as handles. Rights cannot be reduced
// on a descriptor, so Replace hands back the same descriptor. Descriptor 0
// collides with Invalid and cannot be carried.
type FDTable struct{}

// CloseMany closes every descriptor, returning the first failure.
func (FDTable) CloseMany(handles []Handle) error {
	var first error
	for _, h := range handles {
		if h == Invalid {
			continue
		}
		if err := unix.Close(int(h)); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Replace returns h unchanged.
func (FDTable) Replace(h Handle, _ Rights) (Handle, error) {
	if h == Invalid {
		return Invalid, ErrBadHandle
	}
	return h, nil
}

// InfoFromFD describes fd as a handle info, deriving the object type from
// fstat and the rights from the open mode.
func InfoFromFD(fd int) (Info, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return Info{}, err
	}

	objType := ObjTypeNone
	switch st.Mode & unix.S_IFMT {
	case unix.S_IFSOCK:
		objType = ObjTypeSocket
	case unix.S_IFREG:
		objType = ObjTypeVMO
	case unix.S_IFIFO:
		objType = ObjTypeFIFO
	case unix.S_IFCHR:
		objType = ObjTypeResource
	}

	rights := RightsBasic
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return Info{}, err
	}
	switch flags & unix.O_ACCMODE {
	case unix.O_RDONLY:
		rights |= RightRead
	case unix.O_WRONLY:
		rights |= RightWrite
	case unix.O_RDWR:
		rights |= RightsIO
	}
	if objType == ObjTypeVMO {
		rights |= RightMap | RightGetProperty
	}

	return Info{Handle: Handle(fd), Type: objType, Rights: rights}, nil
}
