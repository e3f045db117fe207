package domain

import "strings"

const (
	maxAddedByRunes  = 20
	maxNicknameRunes = 12
)

// DefaultNickname is used when a participant supplies no usable name.
const DefaultNickname = "guest"

// NormalizeLine coerces one cart line into its canonical shape. It is
// applied on every boundary crossing (inbound mutation, read from
// store, submission) rather than trusting prior validity: prices are
// clamped to non-negative, quantity to >= 1, attribution is
// length-capped, and a missing line id is assigned via newID.
func NormalizeLine(line CartLine, newID func() string) CartLine {
	if strings.TrimSpace(line.LineID) == "" {
		line.LineID = newID()
	}
	if line.Price < 0 {
		line.Price = 0
	}
	if line.Qty < 1 {
		line.Qty = 1
	}
	if line.AddOns == nil {
		line.AddOns = []AddOn{}
	}
	for i := range line.AddOns {
		if line.AddOns[i].Price < 0 {
			line.AddOns[i].Price = 0
		}
	}
	switch line.Temp {
	case "hot", "cold", "":
	default:
		line.Temp = ""
	}
	line.AddedBy = truncateRunes(strings.TrimSpace(line.AddedBy), maxAddedByRunes)
	return line
}

// NormalizeCart normalizes every line of a cart, never returning nil.
func NormalizeCart(lines []CartLine, newID func() string) []CartLine {
	out := make([]CartLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, NormalizeLine(l, newID))
	}
	return out
}

// CartTotal sums (price + add-on prices) * qty over all lines.
// Negative numerics have already been clamped by the lax decoder and
// normalization, so a malformed line contributes its best-effort value
// instead of failing the whole computation.
func CartTotal(lines []CartLine) int {
	total := 0
	for _, l := range lines {
		add := 0
		for _, a := range l.AddOns {
			if a.Price > 0 {
				add += int(a.Price)
			}
		}
		price := int(l.Price)
		if price < 0 {
			price = 0
		}
		qty := int(l.Qty)
		if qty < 1 {
			qty = 1
		}
		total += (price + add) * qty
	}
	return total
}

// FindLine returns the index of the line with the given id, or -1.
func FindLine(lines []CartLine, lineID string) int {
	for i, l := range lines {
		if l.LineID == lineID {
			return i
		}
	}
	return -1
}

// NormalizeNickname trims, length-caps, and defaults a display name.
func NormalizeNickname(name string) string {
	name = truncateRunes(strings.TrimSpace(name), maxNicknameRunes)
	if name == "" {
		return DefaultNickname
	}
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
