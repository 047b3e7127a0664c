package message

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Body keys that belong to the envelope and can not be used by payloads.
const (
	msgIDKey     = "msg_id"
	inReplyToKey = "in_reply_to"
	typeKey      = "type"
)

// Payload is the type-tagged part of a message body. Type returns the value of
// the "type" field on the wire, for example "echo" or "init_ok".
type Payload interface {
	Type() string
}

type variant struct {
	typ      reflect.Type
	required []string
}

// Vocabulary is the set of payload variants a reader accepts, indexed by their
// type tag.
type Vocabulary struct {
	variants map[string]variant
}

// NewVocabulary builds a Vocabulary from zero-value prototypes of each
// variant. Prototypes must be struct values, not pointers. It panics if two
// prototypes share a tag or if a payload declares a reserved body key, since
// both are programming errors.
func NewVocabulary(prototypes ...Payload) *Vocabulary {
	v := &Vocabulary{
		variants: make(map[string]variant, len(prototypes)),
	}

	v.add(prototypes...)

	return v
}

// Extend returns a new Vocabulary accepting the variants of v and the given
// prototypes. v is left untouched.
func (v *Vocabulary) Extend(prototypes ...Payload) *Vocabulary {
	res := &Vocabulary{
		variants: make(map[string]variant, len(v.variants)+len(prototypes)),
	}
	for tag, vr := range v.variants {
		res.variants[tag] = vr
	}

	res.add(prototypes...)

	return res
}

func (v *Vocabulary) add(prototypes ...Payload) {
	for _, p := range prototypes {
		t := reflect.TypeOf(p)
		if t.Kind() != reflect.Struct {
			panic(fmt.Sprintf("message: payload %s must be a struct value", t))
		}

		tag := p.Type()
		if _, ok := v.variants[tag]; ok {
			panic(fmt.Sprintf("message: duplicate payload type %q", tag))
		}

		v.variants[tag] = variant{
			typ:      t,
			required: requiredFields(t),
		}
	}
}

// Has reports whether tag names a variant of the Vocabulary.
func (v *Vocabulary) Has(tag string) bool {
	_, ok := v.variants[tag]
	return ok
}

// Types returns the sorted list of accepted type tags.
func (v *Vocabulary) Types() []string {
	tags := make([]string, 0, len(v.variants))
	for tag := range v.variants {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// New returns a pointer to a new zero value of the variant named by tag.
func (v *Vocabulary) New(tag string) (interface{}, bool) {
	vr, ok := v.variants[tag]
	if !ok {
		return nil, false
	}
	return reflect.New(vr.typ).Interface(), true
}

func (v *Vocabulary) required(tag string) []string {
	return v.variants[tag].required
}

// requiredFields lists the json keys of t that are not marked omitempty.
func requiredFields(t reflect.Type) []string {
	fields := []string{}

	for i := 0; i < t.NumField(); i++ {
		name, required, ok := jsonField(t.Field(i))
		if !ok {
			continue
		}

		switch name {
		case msgIDKey, inReplyToKey, typeKey:
			panic(fmt.Sprintf("message: payload %s uses reserved key %q", t, name))
		}

		if required {
			fields = append(fields, name)
		}
	}

	return fields
}

// jsonField returns the wire name of f and whether it is required. ok is
// false for fields that are never encoded.
func jsonField(f reflect.StructField) (name string, required bool, ok bool) {
	if f.PkgPath != "" {
		return "", false, false
	}

	name, opts := f.Name, ""
	if tag, ok := f.Tag.Lookup("json"); ok {
		if tag == "-" {
			return "", false, false
		}
		parts := strings.SplitN(tag, ",", 2)
		if parts[0] != "" {
			name = parts[0]
		}
		if len(parts) > 1 {
			opts = parts[1]
		}
	}

	return name, !strings.Contains(opts, "omitempty"), true
}

// wireValue returns a copy of p whose required nil slices and maps are
// replaced by empty ones, so that they encode as [] and {} instead of null.
// A required pointer or interface left nil can not be encoded in a form the
// decoder accepts and is reported as MissingField.
func wireValue(p Payload) (interface{}, error) {
	v := reflect.ValueOf(p)
	if v.Kind() != reflect.Struct {
		return p, nil
	}

	cp := reflect.New(v.Type()).Elem()
	cp.Set(v)

	for i := 0; i < cp.NumField(); i++ {
		name, required, ok := jsonField(v.Type().Field(i))
		if !ok || !required {
			continue
		}

		f := cp.Field(i)
		switch f.Kind() {
		case reflect.Slice:
			if f.IsNil() {
				f.Set(reflect.MakeSlice(f.Type(), 0, 0))
			}
		case reflect.Map:
			if f.IsNil() {
				f.Set(reflect.MakeMap(f.Type()))
			}
		case reflect.Ptr, reflect.Interface:
			if f.IsNil() {
				return nil, newMalformed(MissingField, name, p.Type(), errors.New("required field is nil"))
			}
		}
	}

	return cp.Interface(), nil
}
