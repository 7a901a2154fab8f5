package graphql

import (
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	graphqlgo "github.com/graph-gophers/graphql-go"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"go.uber.org/zap"

	"tms-graphql-api/internal/core/logger"
	"tms-graphql-api/internal/domain"
	"tms-graphql-api/internal/service"
	"tms-graphql-api/internal/transport/graphql/loader"
	"tms-graphql-api/internal/transport/http/middleware"
	"tms-graphql-api/internal/transport/http/response"
)

//go:embed schema.graphql
var SchemaSDL string

const (
	DefaultMaxComplexity  = 1000
	DefaultListMultiplier = 20

	// 每个运单有 3 个关联字段（createdBy、updatedBy、trackingEvents），
	// 等待 loader 时各占一个并发名额；名额少于一整页的关联字段数时，同一请求的查询会拆成多批
	relationFields        = 3
	MinMaxParallelism     = relationFields * service.MaxLimit
	DefaultMaxParallelism = (relationFields + 1) * service.MaxLimit
)

// parallelism 返回实际使用的并发上限：n <= 0 取默认值，不足一页所需时抬高到 MinMaxParallelism
func parallelism(n int) int {
	if n <= 0 {
		return DefaultMaxParallelism
	}
	return max(n, MinMaxParallelism)
}

type Options struct {
	MaxComplexity  int
	ListMultiplier int
	MaxParallelism int
	LoaderWait     time.Duration
}

type Handler struct {
	exec   *graphqlgo.Schema
	check  *ast.Schema
	cost   Cost
	max    int
	users  loader.UserSource
	events loader.EventSource
	wait   time.Duration
	log    *zap.Logger
}

func NewHandler(res *Resolver, users loader.UserSource, events loader.EventSource, o Options, l *zap.Logger) (*Handler, error) {
	if l == nil {
		l = zap.NewNop()
	}
	if o.MaxComplexity <= 0 {
		o.MaxComplexity = DefaultMaxComplexity
	}
	if o.ListMultiplier <= 0 {
		o.ListMultiplier = DefaultListMultiplier
	}
	par := parallelism(o.MaxParallelism)
	if o.MaxParallelism > 0 && par != o.MaxParallelism {
		l.Warn("graphql.maxParallelism below one page of relation fields, raised",
			zap.Int("configured", o.MaxParallelism), zap.Int("using", par))
	}
	opts := []graphqlgo.SchemaOpt{
		graphqlgo.Logger(logger.GraphQLPanics{L: l}),
		graphqlgo.MaxParallelism(par),
	}
	exec, err := graphqlgo.ParseSchema(SchemaSDL, res, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	check, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphql", Input: SchemaSDL})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return &Handler{
		exec:   exec,
		check:  check,
		cost:   Cost{ListField: "shipments", Weight: o.ListMultiplier},
		max:    o.MaxComplexity,
		users:  users,
		events: events,
		wait:   o.LoaderWait,
		log:    l,
	}, nil
}

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// Serve 顺序：解析校验 → 代价检查 → 挂载 loader → 执行。代价超限时不会调用任何解析器。
func (h *Handler) Serve(c *gin.Context) {
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusOK, response.Fail(response.CodePayloadTooLarge, ""))
			return
		}
		c.JSON(http.StatusOK, response.Fail(response.CodeBadRequest, "invalid request body"))
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusOK, response.Fail(response.CodeBadRequest, "query is required"))
		return
	}

	doc, errs := gqlparser.LoadQuery(h.check, req.Query)
	if len(errs) > 0 {
		opsTotal.WithLabelValues("unknown", "invalid").Inc()
		c.JSON(http.StatusOK, fromGQLErrors(errs))
		return
	}
	op := doc.Operations.ForName(req.OperationName)
	if op == nil {
		opsTotal.WithLabelValues("unknown", "invalid").Inc()
		c.JSON(http.StatusOK, response.Fail(response.CodeBadRequest, "unknown or ambiguous operation"))
		return
	}

	kind := string(op.Operation)
	c.Set(middleware.KeyOperation, op.Name)
	c.Set(middleware.KeyOperationType, kind)
	cost := h.cost.Operation(op)
	opCost.Observe(float64(cost))
	if cost > h.max {
		opsTotal.WithLabelValues(kind, "rejected").Inc()
		h.log.Warn("query rejected",
			zap.String("rid", c.GetString(middleware.KeyRequestID)),
			zap.String("op", op.Name),
			zap.Int("cost", cost),
			zap.Int("max", h.max),
		)
		c.JSON(http.StatusOK, response.FromError(domain.QueryTooComplex(cost, h.max)))
		return
	}

	ctx := loader.Attach(c.Request.Context(), loader.New(h.users, h.events, h.wait))
	res := h.exec.Exec(ctx, req.Query, req.OperationName, req.Variables)

	result := "ok"
	if len(res.Errors) > 0 {
		result = "error"
	}
	opsTotal.WithLabelValues(kind, result).Inc()
	c.JSON(http.StatusOK, res)
}

func fromGQLErrors(list gqlerror.List) response.Envelope {
	env := response.Envelope{Errors: make([]response.Error, 0, len(list))}
	for _, e := range list {
		code := response.CodeValidationFailed
		if e.Rule == "" {
			code = response.CodeParseFailed
		}
		out := response.Error{Message: e.Message, Extensions: map[string]any{"code": code}}
		for _, loc := range e.Locations {
			out.Locations = append(out.Locations, response.Location{Line: loc.Line, Column: loc.Column})
		}
		env.Errors = append(env.Errors, out)
	}
	return env
}
