package textfsm

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

// IndexFile ntc-templates 模板目录中的索引文件名
const IndexFile = "index"

// ErrNoTemplate 索引中没有匹配的模板
var ErrNoTemplate = errors.New("no matching template")

var completionRe = regexp.MustCompile(`\[\[(.+?)\]\]`)

// IndexEntry 索引中的一行
type IndexEntry struct {
	Templates []string
	Hostname  string
	Platform  string
	Command   string

	hostnameRe *regexp.Regexp
	platformRe *regexp.Regexp
	commandRe  *regexp.Regexp
}

// Index 模板索引（Template, Hostname, Platform, Command）
type Index struct {
	dir     string
	entries []*IndexEntry

	mu    sync.Mutex
	cache map[string]*Template
}

// LoadIndex 读取模板目录下的 index 文件
func LoadIndex(dir string) (*Index, error) {
	path := filepath.Join(dir, IndexFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open template index %s: %w", path, err)
	}
	defer f.Close()

	ix := &Index{dir: dir, cache: map[string]*Template{}}
	scanner := bufio.NewScanner(f)
	var columns map[string]int
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := splitIndexLine(line)
		if columns == nil {
			columns = map[string]int{}
			for i, name := range fields {
				columns[name] = i
			}
			for _, required := range []string{"Template", "Command"} {
				if _, ok := columns[required]; !ok {
					return nil, fmt.Errorf("template index %s: missing %s column", path, required)
				}
			}
			continue
		}
		entry, err := newIndexEntry(fields, columns)
		if err != nil {
			return nil, fmt.Errorf("template index %s line %d: %w", path, lineNo, err)
		}
		ix.entries = append(ix.entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read template index %s: %w", path, err)
	}
	if columns == nil {
		return nil, fmt.Errorf("template index %s: empty", path)
	}
	return ix, nil
}

func splitIndexLine(line string) []string {
	parts := strings.Split(line, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func newIndexEntry(fields []string, columns map[string]int) (*IndexEntry, error) {
	col := func(name string) string {
		i, ok := columns[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return fields[i]
	}
	e := &IndexEntry{
		Hostname: col("Hostname"),
		Platform: col("Platform"),
		Command:  col("Command"),
	}
	for _, t := range strings.Split(col("Template"), ":") {
		if t = strings.TrimSpace(t); t != "" {
			e.Templates = append(e.Templates, t)
		}
	}
	if len(e.Templates) == 0 || e.Command == "" {
		return nil, errors.New("template and command are required")
	}

	var err error
	if e.hostnameRe, err = compileIndexPattern(e.Hostname); err != nil {
		return nil, err
	}
	if e.platformRe, err = compileIndexPattern(e.Platform); err != nil {
		return nil, err
	}
	if e.commandRe, err = compileIndexPattern(ExpandCompletion(e.Command)); err != nil {
		return nil, err
	}
	return e, nil
}

func compileIndexPattern(p string) (*regexp.Regexp, error) {
	if p == "" {
		return nil, nil
	}
	re, err := regexp.Compile("^(?:" + p + ")$")
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
	}
	return re, nil
}

// ExpandCompletion 展开命令缩写语法：sh[[ow]] → sh(o(w)?)?
func ExpandCompletion(cmd string) string {
	return completionRe.ReplaceAllStringFunc(cmd, func(m string) string {
		word := m[2 : len(m)-2]
		var b strings.Builder
		for _, r := range word {
			b.WriteString("(")
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
		for range word {
			b.WriteString(")?")
		}
		return b.String()
	})
}

// Match 判断平台与命令是否命中；hostname 为空时不参与匹配
func (e *IndexEntry) Match(hostname, platform, command string) bool {
	if e.platformRe != nil && !e.platformRe.MatchString(platform) {
		return false
	}
	if hostname != "" && e.hostnameRe != nil && !e.hostnameRe.MatchString(hostname) {
		return false
	}
	return e.commandRe.MatchString(normalizeCommand(command))
}

func normalizeCommand(cmd string) string {
	return strings.Join(strings.Fields(cmd), " ")
}

// Lookup 返回第一条命中条目的首个模板文件名
func (ix *Index) Lookup(hostname, platform, command string) (string, bool) {
	for _, e := range ix.entries {
		if e.Match(hostname, platform, command) {
			return e.Templates[0], true
		}
	}
	return "", false
}

// Entries 索引条目（按文件顺序）
func (ix *Index) Entries() []*IndexEntry {
	return ix.entries
}

// Template 查找并编译模板，已编译的模板会被缓存
func (ix *Index) Template(hostname, platform, command string) (*Template, string, error) {
	name, ok := ix.Lookup(hostname, platform, command)
	if !ok {
		return nil, "", ErrNoTemplate
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	if t, ok := ix.cache[name]; ok {
		return t, name, nil
	}
	t, err := ParseFile(filepath.Join(ix.dir, name))
	if err != nil {
		return nil, name, fmt.Errorf("failed to compile template %s: %w", name, err)
	}
	ix.cache[name] = t
	return t, name, nil
}

// ParseCommand 按索引选择模板并解析命令输出
func (ix *Index) ParseCommand(hostname, platform, command, text string) (*Result, string, error) {
	t, name, err := ix.Template(hostname, platform, command)
	if err != nil {
		return nil, name, err
	}
	res, err := t.ParseText(text)
	return res, name, err
}
