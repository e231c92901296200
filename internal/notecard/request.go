package notecard

import (
	"encoding/json"
)

// Request is a mutable relay message. Requests carry a "req" field and
// expect a reply; commands carry "cmd" and are fire-and-forget.
type Request struct {
	name    string
	command bool
	fields  map[string]interface{}
	// id is assigned per attempt by the client and echoed by the relay.
	id uint32
}

func newMessage(name string, command bool) *Request {
	return &Request{
		name:    name,
		command: command,
		fields:  make(map[string]interface{}),
	}
}

// NewRequest builds a message that expects a reply.
func NewRequest(name string) *Request { return newMessage(name, false) }

// NewCommand builds a message the relay does not answer.
func NewCommand(name string) *Request { return newMessage(name, true) }

func (r *Request) Name() string    { return r.name }
func (r *Request) IsCommand() bool { return r.command }

func (r *Request) SetString(key, value string) *Request {
	r.fields[key] = value
	return r
}

func (r *Request) SetInt(key string, value int64) *Request {
	r.fields[key] = value
	return r
}

func (r *Request) SetFloat(key string, value float64) *Request {
	r.fields[key] = value
	return r
}

func (r *Request) SetBool(key string, value bool) *Request {
	r.fields[key] = value
	return r
}

// SetStrings adds a JSON array of strings.
func (r *Request) SetStrings(key string, values ...string) *Request {
	arr := make([]string, len(values))
	copy(arr, values)
	r.fields[key] = arr
	return r
}

// SetObject adds a nested object. The map is copied.
func (r *Request) SetObject(key string, obj map[string]interface{}) *Request {
	cp := make(map[string]interface{}, len(obj))
	for k, v := range obj {
		cp[k] = v
	}
	r.fields[key] = cp
	return r
}

// Field returns the value stored under key.
func (r *Request) Field(key string) (interface{}, bool) {
	v, ok := r.fields[key]
	return v, ok
}

// Fields returns a copy of the request fields, without the req/cmd name.
func (r *Request) Fields() map[string]interface{} {
	cp := make(map[string]interface{}, len(r.fields))
	for k, v := range r.fields {
		cp[k] = v
	}
	return cp
}

func (r *Request) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.fields)+1)
	for k, v := range r.fields {
		out[k] = v
	}
	if r.command {
		out["cmd"] = r.name
	} else {
		out["req"] = r.name
		if r.id != 0 {
			out["id"] = r.id
		}
	}
	return json.Marshal(out)
}

// Response is a decoded relay reply. Getters never panic on missing or
// mistyped fields.
type Response map[string]interface{}

func parseResponse(line []byte) (Response, error) {
	var rsp Response
	if err := json.Unmarshal(line, &rsp); err != nil {
		return nil, err
	}
	if rsp == nil {
		rsp = Response{}
	}
	return rsp, nil
}

// Err returns the relay's error string, if any.
func (r Response) Err() string {
	s, _ := r.String("err")
	return s
}

func (r Response) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

func (r Response) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

func (r Response) Number(key string) (float64, bool) {
	n, ok := r[key].(float64)
	return n, ok
}

func (r Response) Object(key string) (Response, bool) {
	m, ok := r[key].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Response(m), true
}

func (r Response) Array(key string) ([]interface{}, bool) {
	a, ok := r[key].([]interface{})
	return a, ok
}

// ObjectAt returns element i of the array under key as an object.
func (r Response) ObjectAt(key string, i int) (Response, bool) {
	arr, ok := r.Array(key)
	if !ok || i < 0 || i >= len(arr) {
		return nil, false
	}
	m, ok := arr[i].(map[string]interface{})
	if !ok {
		return nil, false
	}
	return Response(m), true
}
