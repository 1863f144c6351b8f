package relay

// Category classifies what kind of appliance a relay slot switches.
// The set is closed; operator edits outside it are rejected.
type Category string

// All supported slot categories.
const (
	CategoryLight   Category = "light"
	CategoryFan     Category = "fan"
	CategoryPump    Category = "pump"
	CategoryTV      Category = "tv"
	CategoryAC      Category = "ac"
	CategoryDoor    Category = "door"
	CategoryCurtain Category = "curtain"
	CategorySpeaker Category = "speaker"
	CategoryCamera  Category = "camera"
	CategoryRelay   Category = "relay"
)

// AllCategories returns every valid slot category.
func AllCategories() []Category {
	return []Category{
		CategoryLight,
		CategoryFan,
		CategoryPump,
		CategoryTV,
		CategoryAC,
		CategoryDoor,
		CategoryCurtain,
		CategorySpeaker,
		CategoryCamera,
		CategoryRelay,
	}
}

// Descriptor is the operator-facing metadata for one relay slot.
// The JSON field names match the device wire format: the category
// travels as "type".
type Descriptor struct {
	Name     string   `json:"name"`
	GPIO     int      `json:"gpio"`
	Category Category `json:"type"`
}

// Config maps slot keys ("relay1".."relay51") to descriptors for one device.
type Config map[string]Descriptor

// Clone returns a copy of the configuration that the caller may mutate.
func (c Config) Clone() Config {
	if c == nil {
		return nil
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
