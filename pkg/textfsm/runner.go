package textfsm

import "strings"

// ListSeparator List 类型 Value 输出为单元格时的分隔符
const ListSeparator = ", "

type valueState struct {
	def   *valueDef
	value string
	list  []string
	// filldown 保留的上一次赋值
	kept     string
	keptList []string
}

func (v *valueState) empty() bool {
	if v.def.list {
		return len(v.list) == 0
	}
	return v.value == ""
}

func (v *valueState) cell() string {
	if v.def.list {
		return strings.Join(v.list, ListSeparator)
	}
	return v.value
}

func (v *valueState) assign(s string, matched bool) {
	if v.def.list {
		if !matched {
			return
		}
		v.list = append(v.list, s)
		if v.def.filldown {
			v.keptList = append([]string(nil), v.list...)
		}
		return
	}
	v.value = s
	if v.def.filldown {
		v.kept = s
	}
}

func (v *valueState) clear() {
	if v.def.filldown {
		v.value = v.kept
		v.list = append([]string(nil), v.keptList...)
		return
	}
	v.value = ""
	v.list = nil
}

func (v *valueState) clearAll() {
	v.value, v.kept = "", ""
	v.list, v.keptList = nil, nil
}

type runner struct {
	tpl    *Template
	values []*valueState
	byName map[string]int
	state  string
	rows   [][]string
}

func newRunner(t *Template) *runner {
	r := &runner{tpl: t, state: stateStart, byName: map[string]int{}, rows: make([][]string, 0)}
	for i, def := range t.values {
		r.values = append(r.values, &valueState{def: def})
		r.byName[def.name] = i
	}
	return r
}

func (r *runner) checkLine(line string) error {
	for _, rl := range r.tpl.states[r.state] {
		idx := rl.re.FindStringSubmatchIndex(line)
		if idx == nil {
			continue
		}
		for g, name := range rl.re.SubexpNames() {
			vi, ok := r.byName[name]
			if g == 0 || !ok {
				continue
			}
			start, end := idx[2*g], idx[2*g+1]
			if start < 0 {
				r.values[vi].assign("", false)
				continue
			}
			r.assign(vi, line[start:end])
		}

		switch rl.recordOp {
		case recordRecord:
			r.appendRecord()
		case recordClear:
			r.clearRecord()
		case recordClearAll:
			for _, v := range r.values {
				v.clearAll()
			}
		}

		switch rl.lineOp {
		case lineError:
			return &ParseError{State: r.state, Line: line, Msg: rl.errMsg}
		case lineContinue:
			continue
		}
		if rl.newState != "" {
			r.state = rl.newState
		}
		return nil
	}
	return nil
}

func (r *runner) assign(vi int, s string) {
	v := r.values[vi]
	v.assign(s, true)
	if !v.def.fillup || s == "" {
		return
	}
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i][vi] != "" {
			break
		}
		r.rows[i][vi] = s
	}
}

// appendRecord 输出当前记录；Required 缺失时丢弃，全空时不输出
func (r *runner) appendRecord() {
	row := make([]string, len(r.values))
	allEmpty := true
	for i, v := range r.values {
		if v.def.required && v.empty() {
			r.clearRecord()
			return
		}
		row[i] = v.cell()
		if row[i] != "" {
			allEmpty = false
		}
	}
	if allEmpty {
		return
	}
	r.rows = append(r.rows, row)
	r.clearRecord()
}

func (r *runner) clearRecord() {
	for _, v := range r.values {
		v.clear()
	}
}
