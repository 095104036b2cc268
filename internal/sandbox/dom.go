package sandbox

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"
)

// nodeBackref is the hidden property linking a JS element object back
// to its Go wrapper for unwrapping in mutation calls.
const nodeBackref = "__go_node__"

// domBridge exposes the parsed document tree to the goja runtime. The
// sandbox is single-goroutine by contract, so no locking happens here.
type domBridge struct {
	vm   *goja.Runtime
	root *html.Node
}

// installDocument wires window, self, document and location globals
// over the parsed tree.
func installDocument(vm *goja.Runtime, root *html.Node, docURL *url.URL) error {
	b := &domBridge{vm: vm, root: root}

	document := vm.NewObject()
	b.defineGetter(document, "body", func() goja.Value { return b.wrapNode(b.find("//body")) })
	b.defineGetter(document, "head", func() goja.Value { return b.wrapNode(b.find("//head")) })
	b.defineGetter(document, "documentElement", func() goja.Value { return b.wrapNode(b.find("//html")) })
	b.defineAccessor(document, "title",
		func() goja.Value {
			if n := b.find("//head/title"); n != nil {
				return vm.ToValue(htmlquery.InnerText(n))
			}
			return vm.ToValue("")
		},
		func(v goja.Value) { b.setTitle(v.String()) },
	)

	document.Set("createElement", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(&html.Node{
			Type: html.ElementNode,
			Data: strings.ToLower(call.Argument(0).String()),
		})
	})
	document.Set("createTextNode", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(&html.Node{Type: html.TextNode, Data: call.Argument(0).String()})
	})
	document.Set("createComment", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(&html.Node{Type: html.CommentNode, Data: call.Argument(0).String()})
	})
	document.Set("getElementById", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(findByID(b.root, call.Argument(0).String()))
	})
	document.Set("querySelector", b.makeQueryOne(func() *html.Node { return b.root }))
	document.Set("querySelectorAll", b.makeQueryAll(func() *html.Node { return b.root }))
	document.Set("getElementsByTagName", b.makeQueryAll(func() *html.Node { return b.root }))
	document.Set("getElementsByClassName", b.makeClassQuery(func() *html.Node { return b.root }))
	b.installEventStubs(document)

	location := vm.NewObject()
	location.Set("href", docURL.String())
	location.Set("protocol", docURL.Scheme+":")
	location.Set("host", docURL.Host)
	location.Set("hostname", docURL.Hostname())
	location.Set("port", docURL.Port())
	location.Set("pathname", pathnameOf(docURL))
	location.Set("search", searchOf(docURL))
	location.Set("hash", hashOf(docURL))
	location.Set("origin", docURL.Scheme+"://"+docURL.Host)

	global := vm.GlobalObject()
	if err := global.Set("window", global); err != nil {
		return err
	}
	if err := global.Set("self", global); err != nil {
		return err
	}
	if err := global.Set("document", document); err != nil {
		return err
	}
	return global.Set("location", location)
}

func pathnameOf(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func searchOf(u *url.URL) string {
	if u.RawQuery == "" {
		return ""
	}
	return "?" + u.RawQuery
}

func hashOf(u *url.URL) string {
	if u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}

// find runs an xpath lookup against the document root.
func (b *domBridge) find(xpath string) *html.Node {
	return htmlquery.FindOne(b.root, xpath)
}

func (b *domBridge) setTitle(title string) {
	node := b.find("//head/title")
	if node == nil {
		head := b.find("//head")
		if head == nil {
			return
		}
		node = &html.Node{Type: html.ElementNode, Data: "title"}
		head.AppendChild(node)
	}
	replaceChildrenWithText(node, title)
}

// query evaluates a CSS selector below scope. Invalid selectors throw
// in JS; cascadia reports them by panicking inside goquery.
func (b *domBridge) query(scope *html.Node, selector string) (nodes []*html.Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("invalid selector %q: %v", selector, r)
		}
	}()
	nodes = goquery.NewDocumentFromNode(scope).Find(selector).Nodes
	return nodes, nil
}

func (b *domBridge) makeQueryOne(scope func() *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		nodes, err := b.query(scope(), call.Argument(0).String())
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		if len(nodes) == 0 {
			return goja.Null()
		}
		return b.wrapNode(nodes[0])
	}
}

func (b *domBridge) makeQueryAll(scope func() *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		nodes, err := b.query(scope(), call.Argument(0).String())
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		return b.wrapNodes(nodes)
	}
}

func (b *domBridge) makeClassQuery(scope func() *html.Node) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		nodes, err := b.query(scope(), "."+call.Argument(0).String())
		if err != nil {
			panic(b.vm.NewGoError(err))
		}
		return b.wrapNodes(nodes)
	}
}

func (b *domBridge) installEventStubs(obj *goja.Object) {
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	obj.Set("addEventListener", noop)
	obj.Set("removeEventListener", noop)
	obj.Set("dispatchEvent", func(call goja.FunctionCall) goja.Value {
		return b.vm.ToValue(true)
	})
}

func (b *domBridge) wrapNodes(nodes []*html.Node) goja.Value {
	wrapped := make([]interface{}, len(nodes))
	for i, n := range nodes {
		wrapped[i] = b.wrapNode(n)
	}
	return b.vm.ToValue(wrapped)
}

// wrapNode converts an *html.Node into its JS-facing object.
func (b *domBridge) wrapNode(node *html.Node) goja.Value {
	if node == nil {
		return goja.Null()
	}

	vm := b.vm
	obj := vm.NewObject()
	obj.DefineDataProperty(nodeBackref, vm.ToValue(node), goja.FLAG_FALSE, goja.FLAG_FALSE, goja.FLAG_FALSE)

	obj.Set("nodeType", nodeType(node))
	obj.Set("nodeName", nodeName(node))

	b.defineGetter(obj, "parentNode", func() goja.Value { return b.wrapNode(node.Parent) })
	b.defineGetter(obj, "firstChild", func() goja.Value { return b.wrapNode(node.FirstChild) })
	b.defineGetter(obj, "lastChild", func() goja.Value { return b.wrapNode(node.LastChild) })
	b.defineGetter(obj, "nextSibling", func() goja.Value { return b.wrapNode(node.NextSibling) })
	b.defineGetter(obj, "previousSibling", func() goja.Value { return b.wrapNode(node.PrevSibling) })
	b.defineGetter(obj, "childNodes", func() goja.Value {
		var children []*html.Node
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		return b.wrapNodes(children)
	})

	obj.Set("appendChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrapNode(call.Argument(0), "appendChild")
		detach(child)
		node.AppendChild(child)
		return call.Argument(0)
	})
	obj.Set("insertBefore", func(call goja.FunctionCall) goja.Value {
		child := b.unwrapNode(call.Argument(0), "insertBefore")
		var ref *html.Node
		if refVal := call.Argument(1); !goja.IsNull(refVal) && !goja.IsUndefined(refVal) {
			ref = b.unwrapNode(refVal, "insertBefore")
			if ref.Parent != node {
				panic(vm.NewGoError(fmt.Errorf("insertBefore: reference node is not a child of this node")))
			}
		}
		detach(child)
		node.InsertBefore(child, ref)
		return call.Argument(0)
	})
	obj.Set("removeChild", func(call goja.FunctionCall) goja.Value {
		child := b.unwrapNode(call.Argument(0), "removeChild")
		if child.Parent != node {
			panic(vm.NewGoError(fmt.Errorf("removeChild: node is not a child of this node")))
		}
		node.RemoveChild(child)
		return call.Argument(0)
	})
	obj.Set("remove", func(call goja.FunctionCall) goja.Value {
		detach(node)
		return goja.Undefined()
	})
	obj.Set("cloneNode", func(call goja.FunctionCall) goja.Value {
		return b.wrapNode(cloneNode(node, call.Argument(0).ToBoolean()))
	})
	b.installEventStubs(obj)

	switch node.Type {
	case html.ElementNode:
		b.wrapElement(obj, node)
	case html.TextNode, html.CommentNode:
		get := func() goja.Value { return vm.ToValue(node.Data) }
		set := func(v goja.Value) { node.Data = v.String() }
		b.defineAccessor(obj, "textContent", get, set)
		b.defineAccessor(obj, "nodeValue", get, set)
		b.defineAccessor(obj, "data", get, set)
	}

	return obj
}

// wrapElement adds element-only properties and methods.
func (b *domBridge) wrapElement(obj *goja.Object, node *html.Node) {
	vm := b.vm

	obj.Set("tagName", strings.ToUpper(node.Data))
	obj.Set("style", vm.NewObject())

	b.defineAccessor(obj, "id",
		func() goja.Value { return vm.ToValue(getAttr(node, "id")) },
		func(v goja.Value) { setAttr(node, "id", v.String()) },
	)
	b.defineAccessor(obj, "className",
		func() goja.Value { return vm.ToValue(getAttr(node, "class")) },
		func(v goja.Value) { setAttr(node, "class", v.String()) },
	)
	b.defineAccessor(obj, "textContent",
		func() goja.Value { return vm.ToValue(htmlquery.InnerText(node)) },
		func(v goja.Value) { replaceChildrenWithText(node, v.String()) },
	)
	b.defineAccessor(obj, "innerHTML",
		func() goja.Value { return vm.ToValue(renderChildren(node)) },
		func(v goja.Value) {
			if err := setInnerHTML(node, v.String()); err != nil {
				panic(vm.NewGoError(err))
			}
		},
	)
	b.defineGetter(obj, "outerHTML", func() goja.Value {
		var sb strings.Builder
		if err := html.Render(&sb, node); err != nil {
			return vm.ToValue("")
		}
		return vm.ToValue(sb.String())
	})

	obj.Set("getAttribute", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		if !hasAttr(node, name) {
			return goja.Null()
		}
		return vm.ToValue(getAttr(node, name))
	})
	obj.Set("setAttribute", func(call goja.FunctionCall) goja.Value {
		setAttr(node, call.Argument(0).String(), call.Argument(1).String())
		return goja.Undefined()
	})
	obj.Set("hasAttribute", func(call goja.FunctionCall) goja.Value {
		return vm.ToValue(hasAttr(node, call.Argument(0).String()))
	})
	obj.Set("removeAttribute", func(call goja.FunctionCall) goja.Value {
		removeAttr(node, call.Argument(0).String())
		return goja.Undefined()
	})

	scope := func() *html.Node { return node }
	obj.Set("querySelector", b.makeQueryOne(scope))
	obj.Set("querySelectorAll", b.makeQueryAll(scope))
	obj.Set("getElementsByTagName", b.makeQueryAll(scope))
	obj.Set("getElementsByClassName", b.makeClassQuery(scope))
}

// unwrapNode recovers the Go node behind a JS element object.
func (b *domBridge) unwrapNode(val goja.Value, op string) *html.Node {
	obj, ok := val.(*goja.Object)
	if !ok {
		panic(b.vm.NewGoError(fmt.Errorf("%s: argument is not a node", op)))
	}
	ref := obj.Get(nodeBackref)
	if ref == nil || goja.IsUndefined(ref) {
		panic(b.vm.NewGoError(fmt.Errorf("%s: argument is not a node", op)))
	}
	node, ok := ref.Export().(*html.Node)
	if !ok {
		panic(b.vm.NewGoError(fmt.Errorf("%s: argument is not a node", op)))
	}
	return node
}

func (b *domBridge) defineGetter(obj *goja.Object, name string, get func() goja.Value) {
	getter := b.vm.ToValue(func(call goja.FunctionCall) goja.Value { return get() })
	obj.DefineAccessorProperty(name, getter, goja.Undefined(), goja.FLAG_FALSE, goja.FLAG_TRUE)
}

func (b *domBridge) defineAccessor(obj *goja.Object, name string, get func() goja.Value, set func(goja.Value)) {
	getter := b.vm.ToValue(func(call goja.FunctionCall) goja.Value { return get() })
	setter := b.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		set(call.Argument(0))
		return goja.Undefined()
	})
	obj.DefineAccessorProperty(name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// Node helpers.

func nodeType(n *html.Node) int {
	switch n.Type {
	case html.ElementNode:
		return 1
	case html.TextNode:
		return 3
	case html.CommentNode:
		return 8
	case html.DocumentNode:
		return 9
	default:
		return 0
	}
}

func nodeName(n *html.Node) string {
	switch n.Type {
	case html.ElementNode:
		return strings.ToUpper(n.Data)
	case html.TextNode:
		return "#text"
	case html.CommentNode:
		return "#comment"
	case html.DocumentNode:
		return "#document"
	default:
		return ""
	}
}

func findByID(root *html.Node, id string) *html.Node {
	if root == nil {
		return nil
	}
	if root.Type == html.ElementNode && getAttr(root, "id") == id {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := findByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

func getAttr(n *html.Node, name string) string {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return attr.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, name string) bool {
	for _, attr := range n.Attr {
		if attr.Key == name {
			return true
		}
	}
	return false
}

func setAttr(n *html.Node, name, value string) {
	for i, attr := range n.Attr {
		if attr.Key == name {
			n.Attr[i].Val = value
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: value})
}

func removeAttr(n *html.Node, name string) {
	for i, attr := range n.Attr {
		if attr.Key == name {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func replaceChildrenWithText(n *html.Node, text string) {
	removeChildren(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
}

func renderChildren(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		html.Render(&sb, c)
	}
	return sb.String()
}

func setInnerHTML(n *html.Node, markup string) error {
	fragments, err := html.ParseFragment(strings.NewReader(markup), n)
	if err != nil {
		return fmt.Errorf("failed to parse HTML fragment: %w", err)
	}
	removeChildren(n)
	for _, f := range fragments {
		n.AppendChild(f)
	}
	return nil
}

func cloneNode(n *html.Node, deep bool) *html.Node {
	clone := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      make([]html.Attribute, len(n.Attr)),
	}
	copy(clone.Attr, n.Attr)
	if deep {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			clone.AppendChild(cloneNode(c, true))
		}
	}
	return clone
}
