package account

import (
	"slices"

	"github.com/caasmo/farmgate/db"
)

// AppendDevice returns devices with device moved or added to the end,
// keeping the db.MaxDevices most recent. The input is not modified.
func AppendDevice(devices []string, device string) []string {
	out := slices.Clone(devices)
	if device != "" {
		out = slices.DeleteFunc(out, func(d string) bool { return d == device })
		out = append(out, device)
	}
	if len(out) > db.MaxDevices {
		out = out[len(out)-db.MaxDevices:]
	}
	return out
}
