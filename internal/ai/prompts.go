package ai

import (
	"fmt"
	"strings"
)

// Language selects the prompt templates.
type Language string

const (
	LangZH Language = "zh"
	LangEN Language = "en"
)

// ParseLanguage accepts "zh", "en" and common spellings; empty means zh.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "zh", "zh-cn", "cn", "chinese":
		return LangZH, nil
	case "en", "en-us", "english":
		return LangEN, nil
	default:
		return "", fmt.Errorf("unsupported prompt language: %s (use zh|en)", s)
	}
}

// QuestionPrompt embeds the question and the serialized data snapshot.
func QuestionPrompt(lang Language, question, data, note string) string {
	var sb strings.Builder
	if lang == LangEN {
		sb.WriteString("Question: ")
		sb.WriteString(question)
		sb.WriteString("\nData: ")
		sb.WriteString(data)
		if note != "" {
			sb.WriteString("\nNote: ")
			sb.WriteString(note)
		}
		sb.WriteString("\nAnalyze the data and answer:")
		return sb.String()
	}
	sb.WriteString("问题：")
	sb.WriteString(question)
	sb.WriteString("\n数据：")
	sb.WriteString(data)
	if note != "" {
		sb.WriteString("\n说明：")
		sb.WriteString(note)
	}
	sb.WriteString("\n请分析并回答：")
	return sb.String()
}

// AnalysisPrompt asks for a step-by-step clinical reasoning pass over raw
// patient text.
func AnalysisPrompt(lang Language, patient string) string {
	if lang == LangEN {
		return analysisEN + patient
	}
	return analysisZH + patient
}

// ReportPrompt turns the reasoning pass into a structured diagnostic report.
func ReportPrompt(lang Language, analysis string) string {
	if lang == LangEN {
		return fmt.Sprintf(reportEN, analysis)
	}
	return fmt.Sprintf(reportZH, analysis)
}

// TruncationNote explains a data snapshot that was cut to fit the context.
func TruncationNote(lang Language, kept, total int) string {
	if lang == LangEN {
		return fmt.Sprintf("only the first %d of %d records are included to fit the context window", kept, total)
	}
	return fmt.Sprintf("为适应上下文长度，仅包含前 %d 条记录（共 %d 条）", kept, total)
}

const analysisZH = `请分析以下患者数据，生成一个详细的思维链分析：

1. **数据特点分析**：
   - 关键信息提取：请列出数据中的重要特征和指标。
   - 数据完整性评估：请评估数据的完整性和准确性。
   - 异常值识别：请识别数据中的异常值，并说明可能的原因。

2. **诊断思路**：
   - 主要问题识别：请指出患者的主要健康问题。
   - 相关因素分析：请分析可能影响患者健康的相关因素。
   - 诊断优先级排序：请根据分析结果对诊断进行优先级排序。

3. **治疗建议框架**：
   - 当前治疗方案评估：请评估现有治疗方案的有效性。
   - 潜在问题识别：请识别可能的潜在问题。
   - 建议方向确定：请提出进一步的治疗建议。

患者数据：
`

const analysisEN = `Analyze the following patient data and produce a detailed step-by-step analysis:

1. **Data characteristics**:
   - Key information: list the important features and indicators in the data.
   - Completeness: assess how complete and accurate the data is.
   - Anomalies: identify outlying values and their likely causes.

2. **Diagnostic reasoning**:
   - Main problems: identify the patient's main health problems.
   - Contributing factors: analyze factors that may affect the patient's health.
   - Priorities: rank the diagnoses by priority based on the analysis.

3. **Treatment framework**:
   - Current treatment: assess the effectiveness of the current treatment plan.
   - Potential issues: identify possible latent problems.
   - Direction: propose next treatment steps.

Patient data:
`

const reportZH = `基于以下思维链分析，生成详细的诊断报告：

%s

请按照以下结构组织报告：

1. **患者基本信息**：
   - 年龄、性别、基础疾病史
   - 主要症状和体征

2. **诊断分析**：
   - 主要诊断
   - 病理类型和分期
   - 转移情况
   - 合并症

3. **治疗历程**：
   - 手术情况
   - 化疗方案
   - 放疗/其他治疗
   - 治疗效果评估

4. **当前问题**：
   - 主要症状
   - 检查结果
   - 治疗反应
   - 当前问题

5. **下一步建议**：
   - 检查建议
   - 治疗建议
   - 随访计划

请使用清晰的标题层级和项目符号，确保报告结构清晰、内容完整。`

const reportEN = `Based on the following step-by-step analysis, write a detailed diagnostic report:

%s

Organize the report as follows:

1. **Patient information**:
   - Age, sex, underlying conditions
   - Main symptoms and signs

2. **Diagnosis**:
   - Primary diagnosis
   - Pathological type and stage
   - Metastases
   - Comorbidities

3. **Treatment history**:
   - Surgery
   - Chemotherapy regimen
   - Radiotherapy and other treatment
   - Treatment response

4. **Current issues**:
   - Main symptoms
   - Test results
   - Response to treatment
   - Open problems

5. **Recommendations**:
   - Further tests
   - Treatment
   - Follow-up plan

Use clear heading levels and bullet points so the report is well structured and complete.`
