package graph

import (
	"net/http"

	"dwolla-gateway/internal/checkout"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
)

type Resolver struct {
	Checkout *checkout.Service
}

func (r *Resolver) Mutation() MutationResolver { return &mutationResolver{r} }
func (r *Resolver) Query() QueryResolver       { return &queryResolver{r} }

type mutationResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }

func NewSchema(r *Resolver) graphql.ExecutableSchema {
	return &executableSchema{resolvers: r}
}

// NewHandler serves the schema over GET and POST.
func NewHandler(r *Resolver) http.Handler {
	srv := handler.New(NewSchema(r))
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})
	return srv
}
