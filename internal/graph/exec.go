package graph

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"

	"dwolla-gateway/internal/graph/model"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed schema.graphqls
var sourceSchema string

var parsedSchema = gqlparser.MustLoadSchema(&ast.Source{Name: "schema.graphqls", Input: sourceSchema})

type ResolverRoot interface {
	Mutation() MutationResolver
	Query() QueryResolver
}

type MutationResolver interface {
	Pay(ctx context.Context, orderID string, key *string) (*model.PaymentResult, error)
}

type QueryResolver interface {
	OrderReceived(ctx context.Context, orderID string, key *string, gatewayReturn *model.GatewayReturnInput) (*model.OrderReceipt, error)
}

// executableSchema walks the validated operation and calls the resolvers
// field by field. Introspection is not served.
type executableSchema struct {
	resolvers ResolverRoot
}

func (e *executableSchema) Schema() *ast.Schema {
	return parsedSchema
}

func (e *executableSchema) Complexity(typeName, field string, childComplexity int, args map[string]any) (int, bool) {
	return 0, false
}

func (e *executableSchema) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)

	var root string
	switch opCtx.Operation.Operation {
	case ast.Query:
		root = "Query"
	case ast.Mutation:
		root = "Mutation"
	default:
		return graphql.OneShot(graphql.ErrorResponse(ctx, "unsupported GraphQL operation"))
	}

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		ec := &execContext{opCtx: opCtx, resolvers: e.resolvers}
		data := ec.rootObject(ctx, root)

		var buf bytes.Buffer
		data.MarshalGQL(&buf)
		return &graphql.Response{Data: buf.Bytes(), Errors: ec.errors}
	}
}

type execContext struct {
	opCtx     *graphql.OperationContext
	resolvers ResolverRoot
	errors    gqlerror.List
}

func (ec *execContext) fail(path ast.Path, err error) graphql.Marshaler {
	ec.errors = append(ec.errors, &gqlerror.Error{Message: err.Error(), Path: path})
	return graphql.Null
}

// rootObject resolves top-level fields in document order, so mutations run
// one after another.
func (ec *execContext) rootObject(ctx context.Context, root string) object {
	fields := graphql.CollectFields(ec.opCtx, ec.opCtx.Operation.SelectionSet, []string{root})

	out := make(object, 0, len(fields))
	for _, f := range fields {
		path := ast.Path{ast.PathName(f.Alias)}
		out = append(out, objectField{f.Alias, ec.rootField(ctx, root, f, path)})
	}
	return out
}

func (ec *execContext) rootField(ctx context.Context, root string, f graphql.CollectedField, path ast.Path) graphql.Marshaler {
	if f.Name == "__typename" {
		return graphql.MarshalString(root)
	}

	args := f.ArgumentMap(ec.opCtx.Variables)
	switch root + "." + f.Name {
	case "Mutation.pay":
		orderID, err := idArg(args, "orderId")
		if err != nil {
			return ec.fail(path, err)
		}
		key, err := stringArg(args, "key")
		if err != nil {
			return ec.fail(path, err)
		}

		res, err := ec.resolvers.Mutation().Pay(ctx, orderID, key)
		if err != nil {
			return ec.fail(path, err)
		}
		return ec.paymentResult(f.Selections, res)

	case "Query.orderReceived":
		orderID, err := idArg(args, "orderId")
		if err != nil {
			return ec.fail(path, err)
		}
		key, err := stringArg(args, "key")
		if err != nil {
			return ec.fail(path, err)
		}
		ret, err := gatewayReturnArg(args, "gatewayReturn")
		if err != nil {
			return ec.fail(path, err)
		}

		res, err := ec.resolvers.Query().OrderReceived(ctx, orderID, key, ret)
		if err != nil {
			return ec.fail(path, err)
		}
		return ec.orderReceipt(f.Selections, res)
	}

	return ec.fail(path, fmt.Errorf("field %s.%s is not available", root, f.Name))
}

func (ec *execContext) paymentResult(sel ast.SelectionSet, res *model.PaymentResult) graphql.Marshaler {
	if res == nil {
		return graphql.Null
	}

	fields := graphql.CollectFields(ec.opCtx, sel, []string{"PaymentResult"})
	out := make(object, 0, len(fields))
	for _, f := range fields {
		var v graphql.Marshaler
		switch f.Name {
		case "__typename":
			v = graphql.MarshalString("PaymentResult")
		case "result":
			v = graphql.MarshalString(res.Result)
		case "redirect":
			v = optionalString(res.Redirect)
		case "notices":
			v = ec.notices(f.Selections, res.Notices)
		default:
			v = graphql.Null
		}
		out = append(out, objectField{f.Alias, v})
	}
	return out
}

func (ec *execContext) orderReceipt(sel ast.SelectionSet, res *model.OrderReceipt) graphql.Marshaler {
	if res == nil {
		return graphql.Null
	}

	fields := graphql.CollectFields(ec.opCtx, sel, []string{"OrderReceipt"})
	out := make(object, 0, len(fields))
	for _, f := range fields {
		var v graphql.Marshaler
		switch f.Name {
		case "__typename":
			v = graphql.MarshalString("OrderReceipt")
		case "orderId":
			v = graphql.MarshalID(res.OrderID)
		case "number":
			v = graphql.MarshalString(res.Number)
		case "status":
			v = graphql.MarshalString(res.Status)
		case "total":
			v = graphql.MarshalString(res.Total)
		case "notices":
			v = ec.notices(f.Selections, res.Notices)
		default:
			v = graphql.Null
		}
		out = append(out, objectField{f.Alias, v})
	}
	return out
}

func (ec *execContext) notices(sel ast.SelectionSet, ns []*model.Notice) graphql.Marshaler {
	fields := graphql.CollectFields(ec.opCtx, sel, []string{"Notice"})

	arr := make(graphql.Array, 0, len(ns))
	for _, n := range ns {
		out := make(object, 0, len(fields))
		for _, f := range fields {
			var v graphql.Marshaler
			switch f.Name {
			case "__typename":
				v = graphql.MarshalString("Notice")
			case "kind":
				v = graphql.MarshalString(n.Kind)
			case "message":
				v = graphql.MarshalString(n.Message)
			default:
				v = graphql.Null
			}
			out = append(out, objectField{f.Alias, v})
		}
		arr = append(arr, out)
	}
	return arr
}

// object keeps response keys in selection order.
type object []objectField

type objectField struct {
	name  string
	value graphql.Marshaler
}

func (o object) MarshalGQL(w io.Writer) {
	io.WriteString(w, "{")
	for i, f := range o {
		if i > 0 {
			io.WriteString(w, ",")
		}
		graphql.MarshalString(f.name).MarshalGQL(w)
		io.WriteString(w, ":")
		f.value.MarshalGQL(w)
	}
	io.WriteString(w, "}")
}

func optionalString(s *string) graphql.Marshaler {
	if s == nil {
		return graphql.Null
	}
	return graphql.MarshalString(*s)
}

func idArg(args map[string]any, name string) (string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return "", fmt.Errorf("argument %q is required", name)
	}
	return graphql.UnmarshalID(v)
}

func stringArg(args map[string]any, name string) (*string, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	s, err := graphql.UnmarshalString(v)
	if err != nil {
		return nil, fmt.Errorf("argument %q: %w", name, err)
	}
	return &s, nil
}

func gatewayReturnArg(args map[string]any, name string) (*model.GatewayReturnInput, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("argument %q must be an object", name)
	}

	var (
		in  model.GatewayReturnInput
		err error
	)
	if in.Error, err = stringArg(m, "error"); err != nil {
		return nil, err
	}
	if in.ErrorDescription, err = stringArg(m, "errorDescription"); err != nil {
		return nil, err
	}
	if in.Postback, err = stringArg(m, "postback"); err != nil {
		return nil, err
	}
	return &in, nil
}
