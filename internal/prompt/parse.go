package prompt

import (
	"fmt"
	"strings"
)

type node interface{ isNode() }

type textNode struct{ text string }

type fieldNode struct{ path string }

type ifNode struct {
	path   string
	negate bool
	then   []node
	orElse []node
}

type eachNode struct {
	path string
	body []node
}

func (textNode) isNode()  {}
func (fieldNode) isNode() {}
func (ifNode) isNode()    {}
func (eachNode) isNode()  {}

// Parse compiles template text. Blocks must be balanced.
func Parse(name, text string) (*Template, error) {
	p := &parser{name: name, src: text}
	nodes, end, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	if end != "" {
		return nil, p.errorf("unexpected {{%s}}", end)
	}
	return &Template{name: name, nodes: nodes}, nil
}

type parser struct {
	name string
	src  string
	pos  int
}

func (p *parser) errorf(format string, args ...any) error {
	line := 1 + strings.Count(p.src[:p.pos], "\n")
	return fmt.Errorf("template %q line %d: %s", p.name, line, fmt.Sprintf(format, args...))
}

// parseUntil reads nodes until EOF or a closing/else tag, which it returns.
func (p *parser) parseUntil() ([]node, string, error) {
	var nodes []node
	for p.pos < len(p.src) {
		open := strings.Index(p.src[p.pos:], "{{")
		if open < 0 {
			nodes = append(nodes, textNode{p.src[p.pos:]})
			p.pos = len(p.src)
			break
		}
		if open > 0 {
			nodes = append(nodes, textNode{p.src[p.pos : p.pos+open]})
			p.pos += open
		}

		end := strings.Index(p.src[p.pos:], "}}")
		if end < 0 {
			return nil, "", p.errorf("unclosed tag")
		}
		tag := strings.TrimSpace(p.src[p.pos+2 : p.pos+end])
		tagStart := p.pos
		p.pos += end + 2

		switch {
		case tag == "":
			p.pos = tagStart
			return nil, "", p.errorf("empty tag")
		case tag == "else" || tag == "/if" || tag == "/unless" || tag == "/each":
			return nodes, tag, nil
		case strings.HasPrefix(tag, "#if "), strings.HasPrefix(tag, "#unless "):
			n, err := p.parseIf(tag)
			if err != nil {
				return nil, "", err
			}
			nodes = append(nodes, n)
		case strings.HasPrefix(tag, "#each "):
			path := strings.TrimSpace(strings.TrimPrefix(tag, "#each "))
			body, closing, err := p.parseUntil()
			if err != nil {
				return nil, "", err
			}
			if closing != "/each" {
				return nil, "", p.errorf("{{#each %s}} closed by %q", path, closing)
			}
			nodes = append(nodes, eachNode{path: path, body: body})
		case strings.HasPrefix(tag, "#") || strings.HasPrefix(tag, "/"):
			p.pos = tagStart
			return nil, "", p.errorf("unknown block %q", tag)
		default:
			nodes = append(nodes, fieldNode{path: tag})
		}
	}
	return nodes, "", nil
}

func (p *parser) parseIf(tag string) (node, error) {
	negate := strings.HasPrefix(tag, "#unless ")
	kw, closeTag := "#if ", "/if"
	if negate {
		kw, closeTag = "#unless ", "/unless"
	}
	n := ifNode{path: strings.TrimSpace(strings.TrimPrefix(tag, kw)), negate: negate}

	body, closing, err := p.parseUntil()
	if err != nil {
		return nil, err
	}
	n.then = body
	if closing == "else" {
		body, closing, err = p.parseUntil()
		if err != nil {
			return nil, err
		}
		n.orElse = body
	}
	if closing != closeTag {
		if closing == "" {
			closing = "end of template"
		}
		return nil, p.errorf("{{%s%s}} closed by %q", kw, n.path, closing)
	}
	return n, nil
}
