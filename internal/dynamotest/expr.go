package dynamotest

import (
	"math/big"
	"reflect"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

type item = map[string]types.AttributeValue

// exprContext resolves placeholders of one request.
type exprContext struct {
	names  map[string]string
	values map[string]types.AttributeValue
}

func (c exprContext) path(token string) string {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, "#") {
		if name, ok := c.names[token]; ok {
			return name
		}
	}
	return token
}

// operand resolves a path or a value placeholder against it.
func (c exprContext) operand(it item, token string) (types.AttributeValue, error) {
	token = strings.TrimSpace(token)
	if strings.HasPrefix(token, ":") {
		v, ok := c.values[token]
		if !ok {
			return nil, errors.Newf("undefined expression value %s", token)
		}
		return v, nil
	}
	return it[c.path(token)], nil
}

// evalCondition evaluates a conjunction of attribute_exists,
// attribute_not_exists, = and <> terms. A nil item is an absent item.
func (c exprContext) evalCondition(it item, expr string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return true, nil
	}
	for _, term := range strings.Split(expr, " AND ") {
		term = strings.TrimSpace(term)
		for strings.HasPrefix(term, "(") && strings.HasSuffix(term, ")") {
			term = strings.TrimSpace(term[1 : len(term)-1])
		}
		ok, err := c.evalTerm(it, term)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func (c exprContext) evalTerm(it item, term string) (bool, error) {
	switch {
	case strings.HasPrefix(term, "attribute_exists(") && strings.HasSuffix(term, ")"):
		_, ok := it[c.path(term[len("attribute_exists(") : len(term)-1])]
		return ok, nil
	case strings.HasPrefix(term, "attribute_not_exists(") && strings.HasSuffix(term, ")"):
		_, ok := it[c.path(term[len("attribute_not_exists(") : len(term)-1])]
		return !ok, nil
	}
	for _, op := range []string{"<>", "="} {
		lhs, rhs, found := strings.Cut(term, " "+op+" ")
		if !found {
			continue
		}
		a, err := c.operand(it, lhs)
		if err != nil {
			return false, err
		}
		b, err := c.operand(it, rhs)
		if err != nil {
			return false, err
		}
		if a == nil || b == nil {
			return false, nil
		}
		if op == "=" {
			return equal(a, b), nil
		}
		return !equal(a, b), nil
	}
	return false, errors.Newf("unsupported condition term %q", term)
}

var clauseRE = regexp.MustCompile(`(?:^|\s)(SET|ADD|REMOVE)\s+`)

// applyUpdate applies SET, ADD and REMOVE clauses to a copy of it and
// returns the copy together with the touched attribute names.
func (c exprContext) applyUpdate(it item, expr string) (item, []string, error) {
	out := copyItem(it)
	var touched []string

	locs := clauseRE.FindAllStringSubmatchIndex(expr, -1)
	if len(locs) == 0 {
		return nil, nil, errors.Newf("unsupported update expression %q", expr)
	}
	for i, loc := range locs {
		keyword := expr[loc[2]:loc[3]]
		end := len(expr)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := expr[loc[1]:end]

		for _, action := range strings.Split(body, ",") {
			action = strings.TrimSpace(action)
			if action == "" {
				continue
			}
			switch keyword {
			case "SET":
				lhs, rhs, found := strings.Cut(action, "=")
				if !found {
					return nil, nil, errors.Newf("malformed SET action %q", action)
				}
				v, err := c.setValue(out, rhs)
				if err != nil {
					return nil, nil, err
				}
				name := c.path(lhs)
				out[name] = v
				touched = append(touched, name)
			case "ADD":
				fields := strings.Fields(action)
				if len(fields) != 2 {
					return nil, nil, errors.Newf("malformed ADD action %q", action)
				}
				delta, err := c.operand(out, fields[1])
				if err != nil {
					return nil, nil, err
				}
				name := c.path(fields[0])
				current, ok := out[name]
				if !ok {
					current = &types.AttributeValueMemberN{Value: "0"}
				}
				sum, err := arith(current, delta, "+")
				if err != nil {
					return nil, nil, err
				}
				out[name] = sum
				touched = append(touched, name)
			case "REMOVE":
				name := c.path(action)
				delete(out, name)
				touched = append(touched, name)
			}
		}
	}
	return out, touched, nil
}

// setValue evaluates the right-hand side of a SET action: an operand or
// operand + operand / operand - operand.
func (c exprContext) setValue(it item, rhs string) (types.AttributeValue, error) {
	for _, op := range []string{"+", "-"} {
		a, b, found := strings.Cut(rhs, " "+op+" ")
		if !found {
			continue
		}
		x, err := c.operand(it, a)
		if err != nil {
			return nil, err
		}
		y, err := c.operand(it, b)
		if err != nil {
			return nil, err
		}
		if x == nil || y == nil {
			return nil, errors.Newf("operand of %q does not exist", rhs)
		}
		return arith(x, y, op)
	}
	v, err := c.operand(it, rhs)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errors.Newf("operand %q does not exist", rhs)
	}
	return v, nil
}

func arith(a, b types.AttributeValue, op string) (types.AttributeValue, error) {
	x, ok1 := a.(*types.AttributeValueMemberN)
	y, ok2 := b.(*types.AttributeValueMemberN)
	if !ok1 || !ok2 {
		return nil, errors.New("arithmetic on non-number")
	}
	p, ok1 := new(big.Int).SetString(x.Value, 10)
	q, ok2 := new(big.Int).SetString(y.Value, 10)
	if !ok1 || !ok2 {
		return nil, errors.Newf("non-integer number %q %s %q", x.Value, op, y.Value)
	}
	if op == "-" {
		q.Neg(q)
	}
	return &types.AttributeValueMemberN{Value: p.Add(p, q).String()}, nil
}

func equal(a, b types.AttributeValue) bool {
	switch x := a.(type) {
	case *types.AttributeValueMemberS:
		y, ok := b.(*types.AttributeValueMemberS)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberN:
		y, ok := b.(*types.AttributeValueMemberN)
		if !ok {
			return false
		}
		p, ok1 := new(big.Float).SetString(x.Value)
		q, ok2 := new(big.Float).SetString(y.Value)
		if !ok1 || !ok2 {
			return x.Value == y.Value
		}
		return p.Cmp(q) == 0
	case *types.AttributeValueMemberBOOL:
		y, ok := b.(*types.AttributeValueMemberBOOL)
		return ok && x.Value == y.Value
	case *types.AttributeValueMemberM:
		y, ok := b.(*types.AttributeValueMemberM)
		if !ok || len(x.Value) != len(y.Value) {
			return false
		}
		for k, v := range x.Value {
			if w, ok := y.Value[k]; !ok || !equal(v, w) {
				return false
			}
		}
		return true
	case *types.AttributeValueMemberL:
		y, ok := b.(*types.AttributeValueMemberL)
		if !ok || len(x.Value) != len(y.Value) {
			return false
		}
		for i := range x.Value {
			if !equal(x.Value[i], y.Value[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func copyItem(it item) item {
	out := make(item, len(it))
	for k, v := range it {
		out[k] = v
	}
	return out
}
