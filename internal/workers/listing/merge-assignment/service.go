// internal/workers/listing/merge-assignment/service.go
package mergeassignment

import (
	"strings"

	"listing-matcher/internal/models"
)

// Merge builds the final placeholder assignment for t. Later sources win on a
// key collision: text fields, then property images, logos, the realtor photo,
// and finally the realtor literals.
func Merge(t models.Template, fields map[string]*string, images Images, realtor Realtor) *Output {
	out := &Output{Assignment: make(map[string]*string, len(t.PlaceholderKeys()))}

	for _, name := range t.FieldNames() {
		out.Assignment[name] = copyValue(fields[name])
	}

	out.zip(t.PropertyImages, images.HouseFiles)
	out.zip(t.Logos, images.LogoFiles)

	if t.RealtorPhotoSlot() == 1 {
		if len(images.PersonFiles) > 0 {
			out.set(t.Realtor.Photo, images.PersonFiles[0])
			out.UnusedFiles = append(out.UnusedFiles, images.PersonFiles[1:]...)
		} else {
			out.UnassignedKeys = append(out.UnassignedKeys, t.Realtor.Photo)
		}
	} else {
		out.UnusedFiles = append(out.UnusedFiles, images.PersonFiles...)
	}

	out.setLiterals([]literal{
		{key: t.Realtor.Name, value: realtor.Name},
		{key: t.Realtor.Info, value: realtor.Email},
		{key: t.Realtor.Address, value: realtor.Address},
	})
	return out
}

type literal struct {
	key, value string
}

// setLiterals assigns the realtor literals. Slots that share one key get their
// values joined with a newline in name, email, address order.
func (o *Output) setLiterals(literals []literal) {
	var order []string
	values := make(map[string][]string, len(literals))
	for _, l := range literals {
		if l.key == "" {
			continue
		}
		if _, ok := values[l.key]; !ok {
			order = append(order, l.key)
		}
		values[l.key] = append(values[l.key], l.value)
	}
	for _, key := range order {
		o.set(key, strings.Join(values[key], "\n"))
	}
}

// zip pairs keys with files in order and stops at the shorter list.
func (o *Output) zip(keys, files []string) {
	n := min(len(keys), len(files))
	for i := 0; i < n; i++ {
		o.set(keys[i], files[i])
	}
	o.UnassignedKeys = append(o.UnassignedKeys, keys[n:]...)
	o.UnusedFiles = append(o.UnusedFiles, files[n:]...)
}

func (o *Output) set(key, value string) {
	o.Assignment[key] = &value
}

func copyValue(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
