package domain

import "strings"

// ElementKeySeparator joins an element id and an item id in a per-element connection key.
const ElementKeySeparator = "#"

// Connections holds the routing rules from a slide to its possible successors.
// A nil or partially filled value is legal and behaves as empty.
type Connections struct {
	// DefaultNext is taken when no option or element rule matches.
	DefaultNext string `json:"default_next,omitempty" yaml:"default_next,omitempty" mapstructure:"default_next"`

	// PerOption maps an option id to a target slide id.
	PerOption map[string]string `json:"per_option,omitempty" yaml:"per_option,omitempty" mapstructure:"per_option"`

	// PerElement maps an element id, or "elementId#itemId", to a target slide id.
	PerElement map[string]string `json:"per_element,omitempty" yaml:"per_element,omitempty" mapstructure:"per_element"`
}

// IsEmpty reports whether the connections carry no rule at all.
func (c *Connections) IsEmpty() bool {
	return c == nil || (c.DefaultNext == "" && len(c.PerOption) == 0 && len(c.PerElement) == 0)
}

// Clone returns a deep copy.
func (c *Connections) Clone() *Connections {
	if c == nil {
		return nil
	}
	out := &Connections{DefaultNext: c.DefaultNext}
	if c.PerOption != nil {
		out.PerOption = make(map[string]string, len(c.PerOption))
		for k, v := range c.PerOption {
			out.PerOption[k] = v
		}
	}
	if c.PerElement != nil {
		out.PerElement = make(map[string]string, len(c.PerElement))
		for k, v := range c.PerElement {
			out.PerElement[k] = v
		}
	}
	return out
}

// Equal reports whether two connection maps carry the same rules.
// Nil and empty maps are equal.
func (c *Connections) Equal(o *Connections) bool {
	if c.IsEmpty() || o.IsEmpty() {
		return c.IsEmpty() && o.IsEmpty()
	}
	return c.DefaultNext == o.DefaultNext &&
		equalStringMaps(c.PerOption, o.PerOption) &&
		equalStringMaps(c.PerElement, o.PerElement)
}

func equalStringMaps(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

// Targets returns every slide id referenced by the connections, keyed by the rule that names it.
func (c *Connections) Targets() map[string]string {
	out := make(map[string]string)
	if c == nil {
		return out
	}
	if c.DefaultNext != "" {
		out["default_next"] = c.DefaultNext
	}
	for k, v := range c.PerOption {
		out["per_option."+k] = v
	}
	for k, v := range c.PerElement {
		out["per_element."+k] = v
	}
	return out
}

// ElementKey builds the per-element connection key for an element and optional item.
func ElementKey(elementID, itemID string) string {
	if itemID == "" {
		return elementID
	}
	return elementID + ElementKeySeparator + itemID
}

// SplitElementKey is the inverse of ElementKey.
func SplitElementKey(key string) (elementID, itemID string) {
	elementID, itemID, _ = strings.Cut(key, ElementKeySeparator)
	return elementID, itemID
}

// Slide is one full-viewport panel of a deck.
type Slide struct {
	ID    string `json:"id" yaml:"id" mapstructure:"id"`
	Title string `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`

	// Order is the dense 1-based canonical position across the whole deck.
	Order int `json:"order" yaml:"order" mapstructure:"order"`

	// FolderID is empty when the slide is unassigned.
	FolderID string `json:"folder,omitempty" yaml:"folder,omitempty" mapstructure:"folder"`

	Connections *Connections `json:"connections,omitempty" yaml:"connections,omitempty" mapstructure:"connections"`

	// Elements are the author-declared initial states of the slide's gating elements.
	// They seed the gating snapshot each time the slide becomes active.
	Elements []GatingElement `json:"elements,omitempty" yaml:"elements,omitempty" mapstructure:"elements"`

	// Revision is assigned by the store and bumped on every accepted write.
	Revision int64 `json:"revision,omitempty" yaml:"revision,omitempty" mapstructure:"revision"`
}

// Clone returns a deep copy of the slide.
func (s Slide) Clone() Slide {
	s.Connections = s.Connections.Clone()
	if s.Elements != nil {
		s.Elements = append([]GatingElement(nil), s.Elements...)
	}
	return s
}

// Folder groups slides for authors. Its order also drives canonical ordering.
type Folder struct {
	ID        string `json:"id" yaml:"id" mapstructure:"id"`
	Name      string `json:"name" yaml:"name" mapstructure:"name"`
	Order     int    `json:"order" yaml:"order" mapstructure:"order"`
	Collapsed bool   `json:"collapsed,omitempty" yaml:"collapsed,omitempty" mapstructure:"collapsed"`
}

// Deck is the unit a SlideStore loads: every slide and folder of one flow.
type Deck struct {
	Slides  []Slide  `json:"slides" yaml:"slides"`
	Folders []Folder `json:"folders,omitempty" yaml:"folders,omitempty"`
}

// Clone returns a deep copy of the deck.
func (d *Deck) Clone() *Deck {
	if d == nil {
		return nil
	}
	out := &Deck{
		Slides:  make([]Slide, len(d.Slides)),
		Folders: append([]Folder(nil), d.Folders...),
	}
	for i, s := range d.Slides {
		out.Slides[i] = s.Clone()
	}
	return out
}
