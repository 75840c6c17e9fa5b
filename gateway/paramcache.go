package gateway

// paramCache remembers the most recent value of every avatar parameter
// the consumer reported. Values keep their OSC argument types; the
// typed accessors return false on a type mismatch so a parameter that
// changed type mid-session reads as absent rather than as a zero.
//
// The cache is only touched from the listener goroutine.
type paramCache struct {
	values map[string]interface{}
}

func newParamCache() *paramCache {
	return &paramCache{values: map[string]interface{}{}}
}

func (c *paramCache) set(name string, value interface{}) {
	c.values[name] = value
}

// IntParam implements the collaborators' ParamSource interfaces.
func (c *paramCache) IntParam(name string) (int32, bool) {
	v, ok := c.values[name].(int32)
	return v, ok
}

func (c *paramCache) BoolParam(name string) (bool, bool) {
	v, ok := c.values[name].(bool)
	return v, ok
}

func (c *paramCache) FloatParam(name string) (float32, bool) {
	v, ok := c.values[name].(float32)
	return v, ok
}
