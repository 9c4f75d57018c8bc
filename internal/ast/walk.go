package ast

// Walk traverses the AST starting from node, calling fn for each node.
// If fn returns false, Walk stops traversing that branch.
func Walk(node Node, fn func(Node) bool) {
	if node == nil || !fn(node) {
		return
	}

	switch n := node.(type) {
	case *Program:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}
	case *Block:
		for _, s := range n.Stmts {
			Walk(s, fn)
		}

	case *VarDecl:
		Walk(n.Name, fn)
		walkType(n.Type, fn)
		walkExpr(n.Init, fn)
	case *FnDecl:
		Walk(n.Name, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
		walkType(n.ReturnType, fn)
		walkBlock(n.Body, fn)
	case *Param:
		Walk(n.Name, fn)
		walkType(n.Type, fn)
	case *StructDecl:
		Walk(n.Name, fn)
		for _, f := range n.Fields {
			Walk(f, fn)
		}
		for _, m := range n.Methods {
			Walk(m, fn)
		}
	case *Field:
		Walk(n.Name, fn)
		walkType(n.Type, fn)
	case *IfStmt:
		walkExpr(n.Cond, fn)
		walkBlock(n.Then, fn)
		walkBlock(n.Else, fn)
	case *WhileStmt:
		walkExpr(n.Cond, fn)
		walkBlock(n.Body, fn)
	case *ForStmt:
		Walk(n.Var, fn)
		walkExpr(n.Iter, fn)
		walkBlock(n.Body, fn)
	case *LoopStmt:
		walkBlock(n.Body, fn)
	case *MatchStmt:
		walkExpr(n.Subject, fn)
		for _, arm := range n.Arms {
			Walk(arm, fn)
		}
	case *MatchArm:
		Walk(n.Pattern, fn)
		walkExpr(n.Guard, fn)
		walkBlock(n.Body, fn)
	case *TryStmt:
		walkBlock(n.Body, fn)
		if n.CatchVar != nil {
			Walk(n.CatchVar, fn)
		}
		walkBlock(n.Catch, fn)
		walkBlock(n.Finally, fn)
	case *ThrowStmt:
		walkExpr(n.Value, fn)
	case *ReturnStmt:
		walkExpr(n.Value, fn)
	case *AssertStmt:
		walkExpr(n.Cond, fn)
		walkExpr(n.Message, fn)
	case *AssignStmt:
		walkExpr(n.Target, fn)
		walkExpr(n.Value, fn)
	case *ImportStmt:
		for _, item := range n.Items {
			Walk(item, fn)
		}
	case *ExternBlock:
		for _, sig := range n.Signatures {
			Walk(sig, fn)
		}
	case *ExternSig:
		Walk(n.Name, fn)
		for _, p := range n.Params {
			Walk(p, fn)
		}
		walkType(n.ReturnType, fn)
	case *ExprStmt:
		walkExpr(n.Expr, fn)

	case *TemplateLit:
		for _, e := range n.Exprs {
			Walk(e, fn)
		}
	case *BinaryExpr:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *UnaryExpr:
		Walk(n.Operand, fn)
	case *CallExpr:
		Walk(n.Callee, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *MemberExpr:
		Walk(n.Target, fn)
		Walk(n.Field, fn)
	case *IndexExpr:
		Walk(n.Target, fn)
		Walk(n.Index, fn)
	case *AwaitExpr:
		Walk(n.Value, fn)
	case *OwnershipExpr:
		Walk(n.Value, fn)
	case *CollectionLit:
		for _, item := range n.Items {
			Walk(item, fn)
		}
		for _, kv := range n.Entries {
			Walk(kv, fn)
		}
	case *KeyValue:
		Walk(n.Key, fn)
		Walk(n.Value, fn)
	case *AnnotatedExpr:
		Walk(n.Annotation, fn)
		for _, a := range n.Args {
			Walk(a, fn)
		}

	case *BindingPattern:
		Walk(n.Name, fn)
	case *LiteralPattern:
		Walk(n.Value, fn)
	case *TuplePattern:
		for _, e := range n.Elems {
			Walk(e, fn)
		}
	case *ListPattern:
		for _, e := range n.Elems {
			Walk(e, fn)
		}

	case *NamedType:
		for _, a := range n.Args {
			Walk(a, fn)
		}
	case *FnType:
		for _, p := range n.Params {
			Walk(p, fn)
		}
		walkType(n.Return, fn)
	}
}

// Optional children are typed interfaces or pointers; a nil child boxed in
// the Node interface would not compare equal to nil, so guard before boxing.

func walkExpr(e Expr, fn func(Node) bool) {
	if e != nil {
		Walk(e, fn)
	}
}

func walkType(t TypeExpr, fn func(Node) bool) {
	if t != nil {
		Walk(t, fn)
	}
}

func walkBlock(b *Block, fn func(Node) bool) {
	if b != nil {
		Walk(b, fn)
	}
}
