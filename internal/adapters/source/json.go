package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/bytedance/sonic/ast"
	"github.com/okian/pitchlens/internal/domain/dataerr"
)

type field struct {
	name  string
	value any
}

// flatten walks a JSON value depth first. Object keys become dotted column
// names in document order; arrays stay whole.
func flatten(prefix string, n *ast.Node, out []field) ([]field, error) {
	switch n.TypeSafe() {
	case ast.V_OBJECT:
		var ferr error
		err := n.ForEach(func(path ast.Sequence, child *ast.Node) bool {
			name := *path.Key
			if prefix != "" {
				name = prefix + "." + name
			}
			out, ferr = flatten(name, child, out)
			return ferr == nil
		})
		if ferr != nil {
			return out, ferr
		}
		return out, err
	default:
		v, err := scalar(n)
		if err != nil {
			return out, err
		}
		return append(out, field{name: prefix, value: v}), nil
	}
}

func scalar(n *ast.Node) (any, error) {
	switch n.TypeSafe() {
	case ast.V_NULL:
		return nil, nil
	case ast.V_TRUE:
		return true, nil
	case ast.V_FALSE:
		return false, nil
	case ast.V_STRING:
		return n.String()
	case ast.V_NUMBER:
		num, err := n.Number()
		if err != nil {
			return nil, err
		}
		if i, err := strconv.ParseInt(string(num), 10, 64); err == nil {
			return i, nil
		}
		return num.Float64()
	case ast.V_ARRAY:
		return n.Interface()
	default:
		return nil, fmt.Errorf("unexpected json node type %d", n.TypeSafe())
	}
}

// JSONDocument reads a single JSON object as a one-row dataset and, when
// arrayField names an array of objects, that array as a second dataset with
// one row per element.
func JSONDocument(name string, r io.Reader, arrayField, arrayName string, sampleRows int) (doc, elems *Table, err error) {
	input := dataerr.Input(name)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, dataerr.Internal(err, "read "+name)
	}
	root, err := sonic.Get(raw)
	if err != nil {
		return nil, nil, dataerr.Malformed(input, "", "", "invalid json")
	}
	if root.TypeSafe() != ast.V_OBJECT {
		return nil, nil, dataerr.Malformed(input, "", "", "expected a json object")
	}

	fields, err := flatten("", &root, nil)
	if err != nil {
		return nil, nil, dataerr.Malformed(input, "", "", err.Error())
	}
	doc = newTable(name, 1)
	doc.addFields(fields)

	if arrayField == "" {
		return doc, nil, nil
	}
	elems = newTable(arrayName, sampleRows)
	arr := root.Get(arrayField)
	if arr == nil || arr.TypeSafe() != ast.V_ARRAY {
		return doc, elems, nil
	}
	var elemErr error
	walkErr := arr.ForEach(func(path ast.Sequence, el *ast.Node) bool {
		var (
			ef  []field
			err error
		)
		if el.TypeSafe() == ast.V_OBJECT {
			ef, err = flatten("", el, nil)
		} else {
			var v any
			v, err = scalar(el)
			ef = []field{{name: "value", value: v}}
		}
		if err != nil {
			elemErr = dataerr.Malformed(input, fmt.Sprintf("%s[%d]", arrayField, path.Index), arrayField, err.Error())
			return false
		}
		elems.addFields(ef)
		return true
	})
	if elemErr != nil {
		return nil, nil, elemErr
	}
	if walkErr != nil {
		return nil, nil, dataerr.Malformed(input, "", arrayField, walkErr.Error())
	}
	return doc, elems, nil
}

// NDJSON reads newline-delimited JSON objects. Only the first sampleRows
// rows are parsed; the rest are counted. Lines that do not hold an object
// are skipped and reported in the returned count.
func NDJSON(name string, r io.Reader, sampleRows int) (*Table, int, error) {
	t := newTable(name, sampleRows)
	br := bufio.NewReaderSize(r, 64<<10)
	skipped := 0

	for {
		line, err := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if t.sampling() {
				root, perr := sonic.Get(line)
				var fields []field
				if perr == nil && root.TypeSafe() == ast.V_OBJECT {
					fields, perr = flatten("", &root, nil)
				} else if perr == nil {
					perr = fmt.Errorf("not an object")
				}
				if perr != nil {
					skipped++
				} else {
					t.addFields(fields)
				}
			} else {
				t.rows++
			}
		}
		if err == io.EOF {
			return t, skipped, nil
		}
		if err != nil {
			return nil, skipped, dataerr.Internal(err, "read "+name)
		}
	}
}
