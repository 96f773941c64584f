package model

// ResultKind 命令结果类型
type ResultKind int

const (
	// ResultText 原始文本
	ResultText ResultKind = iota
	// ResultRecords 结构化记录
	ResultRecords
)

func (k ResultKind) String() string {
	switch k {
	case ResultText:
		return "text"
	case ResultRecords:
		return "records"
	default:
		return "unknown"
	}
}

// Records 字段名一致的有序记录集
// Fields 保持解析器产出的字段顺序，Rows 与 Fields 一一对应
type Records struct {
	Fields []string
	Rows   [][]string
}

// Len 记录条数
func (r Records) Len() int { return len(r.Rows) }

// CommandResult 单条命令的执行结果：原始文本或结构化记录二选一
type CommandResult struct {
	Kind    ResultKind
	Text    string
	Records Records
}

// TextResult 构造原始文本结果
func TextResult(text string) CommandResult {
	return CommandResult{Kind: ResultText, Text: text}
}

// RecordsResult 构造结构化记录结果
func RecordsResult(fields []string, rows [][]string) CommandResult {
	return CommandResult{Kind: ResultRecords, Records: Records{Fields: fields, Rows: rows}}
}
