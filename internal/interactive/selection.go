package interactive

import (
	"fmt"
	"strings"

	"github.com/bbq191/sparks-go/internal/pkgmgr"
)

// Candidate 搜索输出中的一个候选包
type Candidate struct {
	Name        string
	Description string
}

// option 多选列表中的显示文本
func (c Candidate) option() string {
	if c.Description == "" {
		return c.Name
	}
	return c.Name + " - " + c.Description
}

// ParseCandidates 从搜索输出中提取候选包
//
// 每一行的第一个字段作为包名，" - " 之后的内容作为描述（apt-cache、
// pip search 的格式）。无法作为包名的行被跳过，重复的包名只保留第一次。
func ParseCandidates(results []pkgmgr.SearchResult) []Candidate {
	seen := make(map[string]bool)
	var candidates []Candidate

	for _, result := range results {
		if result.Err != nil || !result.Succeeded {
			continue
		}

		for _, line := range strings.Split(result.Output, "\n") {
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}

			name := fields[0]
			if seen[name] || pkgmgr.ValidateName(name) != nil {
				continue
			}
			seen[name] = true

			candidate := Candidate{Name: name}
			if _, desc, ok := strings.Cut(line, " - "); ok {
				candidate.Description = strings.TrimSpace(desc)
			}
			candidates = append(candidates, candidate)
		}
	}

	return candidates
}

// SelectPackages 让用户从候选包中多选，返回选中的包名
func SelectPackages(p Prompter, candidates []Candidate) ([]string, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("未找到匹配的软件包")
	}

	options := make([]string, len(candidates))
	byOption := make(map[string]string, len(candidates))
	for i, candidate := range candidates {
		options[i] = candidate.option()
		byOption[options[i]] = candidate.Name
	}

	selected, err := p.MultiSelect(fmt.Sprintf("从搜索结果中选择软件包 (%d 个):", len(candidates)), options)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(selected))
	for _, option := range selected {
		names = append(names, byOption[option])
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("未选择任何软件包")
	}
	return names, nil
}
