package parser

import "github.com/shaweiguo/datahub/pkg/token"

// Statement represents a SQL statement.
type Statement interface {
	stmtNode()
	GetSpan() token.Span
}

// Expr represents an expression in SQL.
type Expr interface {
	exprNode()
}

// TableRef represents a table reference in FROM clause.
type TableRef interface {
	tableRefNode()
}

// NodeInfo provides common fields for AST nodes that track source position.
type NodeInfo struct {
	Span token.Span
}

// GetSpan returns the node's source span.
func (n *NodeInfo) GetSpan() token.Span {
	return n.Span
}

// ---------- Statement Types ----------

// SelectStmt represents a complete SELECT statement with optional WITH clause.
type SelectStmt struct {
	NodeInfo
	With *WithClause
	Body *SelectBody
}

func (*SelectStmt) stmtNode() {}

// InsertStmt represents INSERT INTO/OVERWRITE ... SELECT or VALUES.
type InsertStmt struct {
	NodeInfo
	Overwrite bool
	Table     *TableName
	Columns   []string    // explicit target column list
	Select    *SelectStmt // nil for VALUES
	Values    [][]Expr
}

func (*InsertStmt) stmtNode() {}

// CreateStmt represents CREATE TABLE/VIEW ... AS SELECT.
type CreateStmt struct {
	NodeInfo
	Kind        CreateKind
	OrReplace   bool
	Temporary   bool
	IfNotExists bool
	Table       *TableName
	Columns     []string
	Select      *SelectStmt
}

func (*CreateStmt) stmtNode() {}

// CreateKind distinguishes CREATE TABLE from CREATE VIEW.
type CreateKind string

// CreateKind constants.
const (
	CreateTable CreateKind = "TABLE"
	CreateView  CreateKind = "VIEW"
)

// WithClause represents a WITH clause with CTEs.
type WithClause struct {
	NodeInfo
	Recursive bool
	CTEs      []*CTE
}

// CTE represents a Common Table Expression.
type CTE struct {
	NodeInfo
	Name    string
	Columns []string // optional column alias list: cte(a, b) AS (...)
	Select  *SelectStmt
}

// SelectBody represents the body of a SELECT with possible set operations.
// Exactly one of Left and Nested is set.
type SelectBody struct {
	NodeInfo
	Left   *SelectCore
	Nested *SelectStmt // parenthesized operand: (SELECT ...) UNION ...
	Op     SetOpType   // UNION, INTERSECT, EXCEPT, or empty
	All    bool        // UNION ALL
	Right  *SelectBody // For chained set operations
}

// SetOpType represents the type of set operation.
type SetOpType string

// SetOpType constants for set operations in queries.
const (
	SetOpNone      SetOpType = ""
	SetOpUnion     SetOpType = "UNION"
	SetOpUnionAll  SetOpType = "UNION ALL"
	SetOpIntersect SetOpType = "INTERSECT"
	SetOpExcept    SetOpType = "EXCEPT"
)

// SelectCore represents the core SELECT clause.
type SelectCore struct {
	NodeInfo
	Distinct bool
	Columns  []SelectItem
	From     *FromClause
	Where    Expr
	GroupBy  []Expr
	Having   Expr
	Windows  []WindowDef // Named window definitions (WINDOW clause)
	Qualify  Expr        // Snowflake/DuckDB window function filter
	OrderBy  []OrderByItem
	Limit    Expr
	Offset   Expr
	Fetch    *FetchClause // FETCH FIRST/NEXT support (SQL:2008)
}

// FetchClause represents FETCH FIRST/NEXT n ROWS ONLY/WITH TIES (SQL:2008).
type FetchClause struct {
	First    bool // true = FIRST, false = NEXT (semantically identical)
	Count    Expr // Number of rows (nil = 1 row implied)
	Percent  bool // FETCH FIRST n PERCENT ROWS
	WithTies bool // true = WITH TIES, false = ONLY
}

// WindowDef represents a named window definition in the WINDOW clause.
// Example: WINDOW w AS (PARTITION BY x ORDER BY y)
type WindowDef struct {
	Name string
	Spec *WindowSpec
}

// SelectItem represents an item in the SELECT list.
type SelectItem struct {
	Star      bool   // SELECT *
	TableStar string // SELECT t.*
	Expr      Expr   // Expression
	Alias     string // AS alias
	Raw       string // source text of the item without its alias
}

// FromClause represents the FROM clause.
type FromClause struct {
	NodeInfo
	Source TableRef
	Joins  []*Join
}

// Join represents a JOIN clause.
type Join struct {
	NodeInfo
	Type      JoinType
	Natural   bool // NATURAL JOIN modifier
	Right     TableRef
	Condition Expr     // ON clause (mutually exclusive with Using)
	Using     []string // USING (col1, col2) columns
}

// JoinType represents the type of join, spelled as its SQL keyword.
type JoinType string

// JoinType constants.
const (
	JoinInner JoinType = "INNER"
	JoinLeft  JoinType = "LEFT"
	JoinRight JoinType = "RIGHT"
	JoinFull  JoinType = "FULL"
	JoinCross JoinType = "CROSS"
	// JoinComma is an implicit cross join written with a comma.
	JoinComma JoinType = ","
)

// OrderByItem represents an item in ORDER BY clause.
type OrderByItem struct {
	Expr       Expr
	Desc       bool
	NullsFirst *bool // nil means default, true = NULLS FIRST, false = NULLS LAST
}

// ---------- Table Reference Types ----------

// TableName represents a table name reference.
type TableName struct {
	NodeInfo
	Catalog string
	Schema  string
	Name    string
	Alias   string
}

func (*TableName) tableRefNode() {}

// QualifiedName returns the dotted catalog.schema.name form.
func (t *TableName) QualifiedName() string {
	name := t.Name
	if t.Schema != "" {
		name = t.Schema + "." + name
	}
	if t.Catalog != "" {
		name = t.Catalog + "." + name
	}
	return name
}

// DerivedTable represents a subquery in FROM clause.
type DerivedTable struct {
	NodeInfo
	Select  *SelectStmt
	Alias   string
	Columns []string // optional column alias list: (...) AS s(a, b)
}

func (*DerivedTable) tableRefNode() {}

// LateralTable represents a LATERAL subquery.
type LateralTable struct {
	NodeInfo
	Select *SelectStmt
	Alias  string
}

func (*LateralTable) tableRefNode() {}

// TableFunc represents a table-valued function call in FROM, such as
// UNNEST(arr) or generate_series(1, 10).
type TableFunc struct {
	NodeInfo
	Call  *FuncCall
	Alias string
}

func (*TableFunc) tableRefNode() {}

// ParenJoin represents a parenthesized join tree: FROM (a JOIN b ON ...).
type ParenJoin struct {
	NodeInfo
	From  *FromClause
	Alias string
}

func (*ParenJoin) tableRefNode() {}

// ---------- Expression Types ----------

// ColumnRef represents a column reference (possibly qualified).
type ColumnRef struct {
	Schema string // optional schema qualifier for schema.table.column
	Table  string // optional table/alias qualifier
	Column string
}

func (*ColumnRef) exprNode() {}

// Literal represents a literal value.
type Literal struct {
	Type     LiteralType
	Value    string
	TypeName string // for typed literals: DATE '2020-01-01'
}

func (*Literal) exprNode() {}

// LiteralType represents the type of a literal.
type LiteralType int

// LiteralType constants for SQL literal value types.
const (
	LiteralNumber LiteralType = iota
	LiteralString
	LiteralBool
	LiteralNull
	LiteralParam
	LiteralInterval
)

// BinaryExpr represents a binary expression.
type BinaryExpr struct {
	Left  Expr
	Op    token.TokenType
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// UnaryExpr represents a unary expression.
type UnaryExpr struct {
	Op   token.TokenType
	Expr Expr
}

func (*UnaryExpr) exprNode() {}

// FuncCall represents a function call.
type FuncCall struct {
	Name     string // upper-cased, possibly schema-qualified
	Distinct bool
	Args     []Expr
	Star     bool          // COUNT(*)
	OrderBy  []OrderByItem // ARRAY_AGG(x ORDER BY y), WITHIN GROUP (ORDER BY y)
	Window   *WindowSpec   // OVER clause
	Filter   Expr          // FILTER (WHERE ...) clause
}

func (*FuncCall) exprNode() {}

// WindowSpec represents a window specification (OVER clause).
type WindowSpec struct {
	Name        string // Named window reference
	PartitionBy []Expr
	OrderBy     []OrderByItem
	Frame       *FrameSpec
}

// FrameSpec represents a window frame specification.
type FrameSpec struct {
	Type  FrameType
	Start *FrameBound
	End   *FrameBound
}

// FrameType represents the type of window frame.
type FrameType string

// FrameType constants for window frame specification types.
const (
	FrameRows   FrameType = "ROWS"
	FrameRange  FrameType = "RANGE"
	FrameGroups FrameType = "GROUPS"
)

// FrameBound represents a window frame bound.
type FrameBound struct {
	Type   FrameBoundType
	Offset Expr // for N PRECEDING/FOLLOWING
}

// FrameBoundType represents the type of frame bound.
type FrameBoundType string

// FrameBoundType constants for window frame bound types.
const (
	FrameUnboundedPreceding FrameBoundType = "UNBOUNDED PRECEDING"
	FrameUnboundedFollowing FrameBoundType = "UNBOUNDED FOLLOWING"
	FrameCurrentRow         FrameBoundType = "CURRENT ROW"
	FrameExprPreceding      FrameBoundType = "EXPR PRECEDING"
	FrameExprFollowing      FrameBoundType = "EXPR FOLLOWING"
)

// CaseExpr represents a CASE expression.
type CaseExpr struct {
	Operand Expr // CASE operand WHEN... (optional)
	Whens   []WhenClause
	Else    Expr
}

func (*CaseExpr) exprNode() {}

// WhenClause represents a WHEN clause in CASE expression.
type WhenClause struct {
	Condition Expr
	Result    Expr
}

// CastExpr represents CAST, TRY_CAST and the :: operator.
type CastExpr struct {
	Expr     Expr
	TypeName string
}

func (*CastExpr) exprNode() {}

// InExpr represents an IN expression.
type InExpr struct {
	Expr   Expr
	Not    bool
	Values []Expr      // IN (1, 2, 3)
	Query  *SelectStmt // IN (SELECT ...)
}

func (*InExpr) exprNode() {}

// BetweenExpr represents a BETWEEN expression.
type BetweenExpr struct {
	Expr Expr
	Not  bool
	Low  Expr
	High Expr
}

func (*BetweenExpr) exprNode() {}

// IsExpr represents IS [NOT] NULL / TRUE / FALSE / DISTINCT FROM expr.
type IsExpr struct {
	Expr  Expr
	Not   bool
	Value Expr // literal NULL/TRUE/FALSE, or the DISTINCT FROM operand
}

func (*IsExpr) exprNode() {}

// LikeExpr represents a LIKE/ILIKE expression.
type LikeExpr struct {
	Expr    Expr
	Not     bool
	Pattern Expr
	Escape  Expr
	Op      token.TokenType // token.LIKE or token.ILIKE
}

func (*LikeExpr) exprNode() {}

// IndexExpr represents subscript access: arr[1], obj['key'].
type IndexExpr struct {
	Expr  Expr
	Index Expr
}

func (*IndexExpr) exprNode() {}

// ParenExpr represents a parenthesized expression or row constructor.
type ParenExpr struct {
	Exprs []Expr
}

func (*ParenExpr) exprNode() {}

// StarExpr represents a * expression (for SELECT *).
type StarExpr struct {
	Table string // optional table qualifier for t.*
}

func (*StarExpr) exprNode() {}

// SubqueryExpr represents a scalar subquery used as an expression.
type SubqueryExpr struct {
	Select *SelectStmt
}

func (*SubqueryExpr) exprNode() {}

// ExistsExpr represents an EXISTS expression.
type ExistsExpr struct {
	Not    bool
	Select *SelectStmt
}

func (*ExistsExpr) exprNode() {}
