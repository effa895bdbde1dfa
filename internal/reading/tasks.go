package reading

import (
	"strings"

	"github.com/yeren66/LLM4ArxivPaper/internal/core"
)

// defaultTasksEN is the fallback question set when the model under-delivers
// or the pipeline runs offline.
var defaultTasksEN = []core.TaskItem{
	{
		Question: "What are the main contributions of this paper?",
		Reason:   "The headline claims frame everything else in the paper.",
	},
	{
		Question: "What method or framework does the paper propose, and how does it work?",
		Reason:   "The mechanism determines whether the idea transfers to other settings.",
	},
	{
		Question: "How is the approach validated experimentally?",
		Reason:   "The evaluation setup decides how much weight the results carry.",
	},
	{
		Question: "What limitations or open problems do the authors acknowledge?",
		Reason:   "Known weaknesses reveal where follow-up work is needed.",
	},
	{
		Question: "How does this work compare with prior approaches?",
		Reason:   "Positioning against earlier work shows what is actually new.",
	},
}

var defaultTasksZH = []core.TaskItem{
	{
		Question: "这篇论文的主要贡献是什么？",
		Reason:   "核心主张决定了整篇论文的阅读框架。",
	},
	{
		Question: "论文提出了什么方法或框架？它是如何工作的？",
		Reason:   "机制决定了该思路能否迁移到其他场景。",
	},
	{
		Question: "该方法是如何通过实验验证的？",
		Reason:   "实验设置决定了结论的可信程度。",
	},
	{
		Question: "作者承认了哪些局限性或未解决的问题？",
		Reason:   "已知的弱点指出了后续工作的方向。",
	},
	{
		Question: "这项工作与已有方法相比有何不同？",
		Reason:   "与先前工作的对比才能说明真正的新颖之处。",
	},
}

// DefaultTasks returns a copy of the default question set for the configured
// language.
func DefaultTasks(language string) []core.TaskItem {
	source := defaultTasksEN
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "zh", "zh-cn", "zh-hans", "chinese":
		source = defaultTasksZH
	}
	tasks := make([]core.TaskItem, len(source))
	copy(tasks, source)
	return tasks
}
