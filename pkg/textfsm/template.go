// Package textfsm 实现 TextFSM 模板解析与状态机执行，兼容 ntc-templates 模板库
package textfsm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// 行操作
const (
	lineNext     = "Next"
	lineContinue = "Continue"
	lineError    = "Error"
)

// 记录操作
const (
	recordNone     = "NoRecord"
	recordRecord   = "Record"
	recordClear    = "Clear"
	recordClearAll = "Clearall"
)

// 保留状态
const (
	stateStart = "Start"
	stateEnd   = "End"
	stateEOF   = "EOF"
)

var (
	stateNameRe = regexp.MustCompile(`^\w+$`)
	ruleActRe   = regexp.MustCompile(`^(.*)\s->(.*)$`)
)

type valueDef struct {
	name     string
	regex    string
	required bool
	filldown bool
	fillup   bool
	key      bool
	list     bool
}

type rule struct {
	match    string
	re       *regexp.Regexp
	lineOp   string
	recordOp string
	newState string
	errMsg   string
	lineNo   int
}

// Template 已编译的 TextFSM 模板，可被多次执行
type Template struct {
	values []*valueDef
	states map[string][]*rule
}

// Result 解析结果：Header 为 Value 声明顺序，Rows 按匹配顺序
type Result struct {
	Header []string
	Rows   [][]string
}

// TemplateError 模板语法错误
type TemplateError struct {
	Line int
	Msg  string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("textfsm template line %d: %s", e.Line, e.Msg)
}

// ParseError 执行 Error 动作时返回
type ParseError struct {
	State string
	Line  string
	Msg   string
}

func (e *ParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("textfsm error in state %s: %s (line %q)", e.State, e.Msg, e.Line)
	}
	return fmt.Sprintf("textfsm error in state %s (line %q)", e.State, e.Line)
}

// ParseFile 读取并编译模板文件
func ParseFile(path string) (*Template, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseString 编译模板文本
func ParseString(tpl string) (*Template, error) {
	return Parse(strings.NewReader(tpl))
}

// Parse 编译模板
func Parse(r io.Reader) (*Template, error) {
	t := &Template{states: map[string][]*rule{}}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	inValues := true
	current := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(raw)
		if strings.HasPrefix(trimmed, "#") {
			continue
		}
		if inValues {
			if trimmed == "" {
				if len(t.values) > 0 {
					inValues = false
				}
				continue
			}
			if strings.HasPrefix(trimmed, "Value ") {
				v, err := parseValue(trimmed, lineNo)
				if err != nil {
					return nil, err
				}
				for _, existing := range t.values {
					if existing.name == v.name {
						return nil, &TemplateError{Line: lineNo, Msg: "duplicate value " + v.name}
					}
				}
				t.values = append(t.values, v)
				continue
			}
			inValues = false
		}
		if trimmed == "" {
			current = ""
			continue
		}
		if raw[0] != ' ' && raw[0] != '\t' {
			if !stateNameRe.MatchString(trimmed) {
				return nil, &TemplateError{Line: lineNo, Msg: "invalid state name " + trimmed}
			}
			if _, dup := t.states[trimmed]; dup {
				return nil, &TemplateError{Line: lineNo, Msg: "duplicate state " + trimmed}
			}
			current = trimmed
			t.states[current] = nil
			continue
		}
		if current == "" {
			return nil, &TemplateError{Line: lineNo, Msg: "rule outside of a state"}
		}
		rl, err := t.parseRule(trimmed, lineNo)
		if err != nil {
			return nil, err
		}
		t.states[current] = append(t.states[current], rl)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if len(t.values) == 0 {
		return nil, &TemplateError{Line: lineNo, Msg: "no values defined"}
	}
	if _, ok := t.states[stateStart]; !ok {
		return nil, &TemplateError{Line: lineNo, Msg: "missing Start state"}
	}
	for _, rules := range t.states {
		for _, rl := range rules {
			if rl.newState == "" || rl.newState == stateEnd || rl.newState == stateEOF {
				continue
			}
			if _, ok := t.states[rl.newState]; !ok {
				return nil, &TemplateError{Line: rl.lineNo, Msg: "unknown state " + rl.newState}
			}
		}
	}
	return t, nil
}

// parseValue Value [Option[,Option...]] NAME (REGEX)
func parseValue(line string, lineNo int) (*valueDef, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "Value "))
	first, remainder := nextToken(rest)
	second, tail := nextToken(remainder)
	if first == "" || second == "" {
		return nil, &TemplateError{Line: lineNo, Msg: "expect at least 3 tokens on Value line"}
	}

	v := &valueDef{}
	if strings.HasPrefix(second, "(") {
		v.name = first
		v.regex = strings.TrimSpace(remainder)
	} else {
		for _, opt := range strings.Split(first, ",") {
			switch opt {
			case "Required":
				v.required = true
			case "Filldown":
				v.filldown = true
			case "Fillup":
				v.fillup = true
			case "Key":
				v.key = true
			case "List":
				v.list = true
			default:
				return nil, &TemplateError{Line: lineNo, Msg: "unknown value option " + opt}
			}
		}
		v.name = second
		v.regex = strings.TrimSpace(tail)
	}

	if !strings.HasPrefix(v.regex, "(") || !strings.HasSuffix(v.regex, ")") {
		return nil, &TemplateError{Line: lineNo, Msg: "value regex must be enclosed in parentheses: " + v.regex}
	}
	if _, err := regexp.Compile(v.regex); err != nil {
		return nil, &TemplateError{Line: lineNo, Msg: fmt.Sprintf("invalid regex for %s: %v", v.name, err)}
	}
	return v, nil
}

func nextToken(s string) (string, string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], s[i:]
}

func (t *Template) parseRule(line string, lineNo int) (*rule, error) {
	rl := &rule{lineOp: lineNext, recordOp: recordNone, lineNo: lineNo, match: line}
	if m := ruleActRe.FindStringSubmatch(line); m != nil {
		rl.match = strings.TrimSpace(m[1])
		if err := parseAction(rl, strings.TrimSpace(m[2])); err != nil {
			return nil, err
		}
	}
	if !strings.HasPrefix(rl.match, "^") {
		return nil, &TemplateError{Line: lineNo, Msg: "rule must start with '^': " + rl.match}
	}

	pattern, err := t.substitute(rl.match, lineNo)
	if err != nil {
		return nil, err
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, &TemplateError{Line: lineNo, Msg: fmt.Sprintf("invalid rule regex: %v", err)}
	}
	rl.re = re
	return rl, nil
}

// parseAction LineOp[.RecordOp] [NewState] | RecordOp [NewState] | NewState | Error ["msg"]
func parseAction(rl *rule, act string) error {
	if act == "" {
		return &TemplateError{Line: rl.lineNo, Msg: "empty action"}
	}
	head, tail := nextToken(act)
	tail = strings.TrimSpace(tail)

	ops := strings.SplitN(head, ".", 2)
	switch {
	case isLineOp(ops[0]):
		rl.lineOp = ops[0]
		if len(ops) == 2 {
			if !isRecordOp(ops[1]) {
				return &TemplateError{Line: rl.lineNo, Msg: "unknown record operation " + ops[1]}
			}
			rl.recordOp = ops[1]
		}
	case len(ops) == 1 && isRecordOp(ops[0]):
		rl.recordOp = ops[0]
	case len(ops) == 1 && tail == "":
		rl.newState = ops[0]
		return validateTransition(rl)
	default:
		return &TemplateError{Line: rl.lineNo, Msg: "invalid action " + act}
	}

	if tail != "" {
		if rl.lineOp == lineError {
			rl.errMsg = strings.Trim(tail, `"`)
		} else {
			rl.newState = tail
		}
	}
	return validateTransition(rl)
}

func validateTransition(rl *rule) error {
	if rl.newState == "" {
		return nil
	}
	if rl.lineOp == lineContinue {
		return &TemplateError{Line: rl.lineNo, Msg: "state change not allowed with Continue"}
	}
	if !stateNameRe.MatchString(rl.newState) {
		return &TemplateError{Line: rl.lineNo, Msg: "invalid target state " + rl.newState}
	}
	return nil
}

func isLineOp(s string) bool {
	return s == lineNext || s == lineContinue || s == lineError
}

func isRecordOp(s string) bool {
	return s == recordNone || s == recordRecord || s == recordClear || s == recordClearAll
}

// substitute 展开 ${NAME} / $NAME 为命名分组，$$ 表示字面量 $
func (t *Template) substitute(match string, lineNo int) (string, error) {
	var b strings.Builder
	for i := 0; i < len(match); i++ {
		ch := match[i]
		if ch != '$' {
			b.WriteByte(ch)
			continue
		}
		if i+1 >= len(match) {
			b.WriteByte('$')
			continue
		}
		next := match[i+1]
		switch {
		case next == '$':
			b.WriteByte('$')
			i++
		case next == '{':
			end := strings.IndexByte(match[i+2:], '}')
			if end < 0 {
				return "", &TemplateError{Line: lineNo, Msg: "unterminated ${ in rule"}
			}
			name := match[i+2 : i+2+end]
			v := t.value(name)
			if v == nil {
				return "", &TemplateError{Line: lineNo, Msg: "unknown value " + name}
			}
			b.WriteString(namedGroup(v))
			i += 2 + end
		case isIdentStart(next):
			j := i + 1
			for j < len(match) && isIdentChar(match[j]) {
				j++
			}
			name := match[i+1 : j]
			v := t.value(name)
			if v == nil {
				return "", &TemplateError{Line: lineNo, Msg: "unknown value " + name}
			}
			b.WriteString(namedGroup(v))
			i = j - 1
		default:
			b.WriteByte('$')
		}
	}
	return b.String(), nil
}

func namedGroup(v *valueDef) string {
	return "(?P<" + v.name + ">" + v.regex[1:]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (t *Template) value(name string) *valueDef {
	for _, v := range t.values {
		if v.name == name {
			return v
		}
	}
	return nil
}

// Header Value 名称，按模板声明顺序
func (t *Template) Header() []string {
	out := make([]string, len(t.values))
	for i, v := range t.values {
		out[i] = v.name
	}
	return out
}

// Keys 标记为 Key 的 Value 名称
func (t *Template) Keys() []string {
	out := make([]string, 0)
	for _, v := range t.values {
		if v.key {
			out = append(out, v.name)
		}
	}
	return out
}

// ParseText 用模板状态机解析命令输出
func (t *Template) ParseText(text string) (*Result, error) {
	run := newRunner(t)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	for _, line := range lines {
		if err := run.checkLine(line); err != nil {
			return nil, err
		}
		if run.state == stateEnd || run.state == stateEOF {
			break
		}
	}
	if _, hasEOF := t.states[stateEOF]; run.state != stateEnd && !hasEOF {
		run.appendRecord()
	}
	return &Result{Header: t.Header(), Rows: run.rows}, nil
}
