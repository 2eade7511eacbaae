package connection

import (
	"os"

	"github.com/indragiek/reactivexpc/pkg/native"
)

// detach returns obj with every descriptor it references replaced by a
// duplicate, plus the duplicates. Objects without descriptors come back
// unchanged. The caller closes the duplicates once the transport's Send has
// returned.
func detach(obj native.Object) (native.Object, []*os.File, error) {
	var owned []*os.File
	out, _, err := detachInto(obj, &owned)
	if err != nil {
		closeAll(owned)
		return nil, nil, err
	}
	return out, owned, nil
}

// detachInto reports whether the returned object differs from obj.
func detachInto(obj native.Object, owned *[]*os.File) (native.Object, bool, error) {
	switch o := obj.(type) {
	case native.Array:
		var out native.Array
		for i, item := range o {
			d, changed, err := detachInto(item, owned)
			if err != nil {
				return nil, false, err
			}
			if changed && out == nil {
				out = append(make(native.Array, 0, len(o)), o[:i]...)
			}
			if out != nil {
				out = append(out, d)
			}
		}
		if out == nil {
			return o, false, nil
		}
		return out, true, nil
	case native.Dictionary:
		var out native.Dictionary
		for k, v := range o {
			d, changed, err := detachInto(v, owned)
			if err != nil {
				return nil, false, err
			}
			if !changed {
				continue
			}
			if out == nil {
				out = make(native.Dictionary, len(o))
				for k2, v2 := range o {
					out[k2] = v2
				}
			}
			out[k] = d
		}
		if out == nil {
			return o, false, nil
		}
		return out, true, nil
	case *native.FD:
		f, err := native.DupFile(o.File())
		if err != nil {
			return nil, false, err
		}
		*owned = append(*owned, f)
		return native.NewFD(f), true, nil
	case *native.Shmem:
		f, err := native.DupFile(o.File())
		if err != nil {
			return nil, false, err
		}
		*owned = append(*owned, f)
		return native.NewShmem(f, o.Length()), true, nil
	default:
		return obj, false, nil
	}
}

func closeAll(files []*os.File) {
	for _, f := range files {
		f.Close()
	}
}
