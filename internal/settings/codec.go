package settings

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/xtxerr/dmxnode/internal/constants"
	"github.com/xtxerr/dmxnode/internal/errors"
)

// Value codecs. Every setting is read and written as text so the shell,
// the daemon flags and documents share one parser per field type.

type integer interface {
	~int8 | ~int16 | ~int32 | ~uint8 | ~uint16 | ~uint32
}

// parseInteger accepts decimal, 0x hex and 0b binary.
func parseInteger[T integer](name, s string) (T, error) {
	s = strings.TrimSpace(s)
	n, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return 0, errors.NewInvalidValue(name, s, "not an integer")
	}
	v := T(n)
	if int64(v) != n {
		return 0, errors.NewInvalidValue(name, s, "out of range")
	}
	return v, nil
}

func parseIPv4(name, s string) ([4]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return [4]byte{}, nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return [4]byte{}, errors.NewInvalidValue(name, s, "not an IPv4 address")
	}
	return addr.As4(), nil
}

func formatIPv4(v [4]byte) string {
	return netip.AddrFrom4(v).String()
}

// parseCID accepts a UUID, or "random" for a fresh version 4 UUID.
func parseCID(name, s string) ([16]byte, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, constants.CIDRandom) {
		return uuid.New(), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return [16]byte{}, errors.NewInvalidValue(name, s, "not a UUID")
	}
	return id, nil
}

func formatCID(v [16]byte) string {
	return uuid.UUID(v).String()
}

// parseTimecode accepts "hh:mm:ss:ff".
func parseTimecode(name, s string) ([4]byte, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 4 {
		return [4]byte{}, errors.NewInvalidValue(name, s, "expected hh:mm:ss:ff")
	}
	limits := [4]uint64{24, 60, 60, 30}
	var tc [4]byte
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil || n >= limits[i] {
			return [4]byte{}, errors.NewInvalidValue(name, s, "expected hh:mm:ss:ff")
		}
		tc[i] = byte(n)
	}
	return tc, nil
}

func formatTimecode(v [4]byte) string {
	return fmt.Sprintf("%02d:%02d:%02d:%02d", v[0], v[1], v[2], v[3])
}

func parseBool(name, s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, errors.NewInvalidValue(name, s, "not a boolean")
	}
	return b, nil
}

// splitList splits a comma separated list; an empty string is an empty list.
func splitList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, constants.ListSeparator)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseList[E any](name string, items []string, capacity int, parse func(string, string) (E, error)) ([]E, error) {
	if len(items) > capacity {
		return nil, errors.NewInvalidValue(name, strings.Join(items, ","), fmt.Sprintf("at most %d entries", capacity))
	}
	out := make([]E, 0, len(items))
	for _, it := range items {
		v, err := parse(name, it)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
