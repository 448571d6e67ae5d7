package groupchat

import "github.com/codeready-toolchain/aks-migrator/pkg/phase"

// VerdictSchemaFor returns the JSON Schema text used in structured-output
// mode (pkg/llmsvc.Settings.ResponseSchema) for the given phase's
// termination_output payload, one schema per phase since each payload is
// a distinct closed set of fields (spec.md §3).
func VerdictSchemaFor(ph phase.Name) string {
	switch ph {
	case phase.Analysis:
		return analysisVerdictSchema
	case phase.Design:
		return designVerdictSchema
	case phase.YAML:
		return yamlVerdictSchema
	case phase.Documentation:
		return documentationVerdictSchema
	default:
		return ""
	}
}

const verdictEnvelope = `{
  "type": "object",
  "required": ["result", "reason", "is_hard_terminated", "termination_type"],
  "properties": {
    "result": {"type": "boolean"},
    "reason": {"type": "string"},
    "is_hard_terminated": {"type": "boolean"},
    "termination_type": {"type": "string", "enum": ["soft_completion", "hard_blocked", "hard_error", "hard_timeout"]},
    "blocking_issues": {"type": "array", "items": {"type": "string"}},
    "termination_output": `

const analysisVerdictSchema = verdictEnvelope + `{
      "type": ["object", "null"],
      "properties": {
        "platform_detected": {"type": "string", "enum": ["EKS", "GKE", "none"]},
        "confidence_score": {"type": "string"},
        "files_discovered": {"type": "array"},
        "complexity_analysis": {"type": "object"},
        "migration_readiness": {"type": "object"},
        "expert_insights": {"type": "array", "items": {"type": "string"}},
        "analysis_file": {"type": "string"}
      }
    }}}`

const designVerdictSchema = verdictEnvelope + `{
      "type": ["object", "null"],
      "properties": {
        "summary": {"type": "string"},
        "azure_services": {"type": "array", "items": {"type": "string"}},
        "architecture_decisions": {"type": "array", "items": {"type": "string"}},
        "outputs": {"type": "array"},
        "incomplete_reason": {"type": "string"},
        "missing_information": {"type": "array", "items": {"type": "string"}}
      }
    }}}`

const yamlVerdictSchema = verdictEnvelope + `{
      "type": ["object", "null"],
      "properties": {
        "converted_files": {"type": "array"},
        "multi_dimensional_analysis": {"type": "object"},
        "overall_conversion_metrics": {"type": "object"},
        "conversion_quality": {"type": "string"},
        "expert_insights": {"type": "array", "items": {"type": "string"}},
        "conversion_report_file": {"type": "string"},
        "incomplete_reason": {"type": "string"},
        "missing_information": {"type": "array", "items": {"type": "string"}}
      }
    }}}`

const documentationVerdictSchema = verdictEnvelope + `{
      "type": ["object", "null"],
      "properties": {
        "aggregated_results": {"type": "string"},
        "generated_files": {"type": "object"},
        "expert_collaboration": {"type": "object"},
        "process_metrics": {"type": "object"},
        "incomplete_reason": {"type": "string"},
        "missing_information": {"type": "array", "items": {"type": "string"}}
      }
    }}}`
