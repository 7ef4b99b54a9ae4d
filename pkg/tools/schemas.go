package tools

// Argument schemas for the canonical tool set. Maxima that the services clamp
// (maxResults) are deliberately not schema-enforced: oversized requests are
// accepted and clamped, not rejected.

const queryKnowledgeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "pattern": "\\S", "description": "Question about AOMA operations, exports, or asset workflows"},
    "strategy": {"type": "string", "enum": ["comprehensive", "focused", "rapid"], "description": "Retrieval strategy; defaults to focused"},
    "context": {"type": "string", "description": "Additional caller context folded into the prompt"},
    "maxResults": {"type": "integer", "minimum": 1}
  }
}`

const searchJiraSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "projectKey": {"type": "string"},
    "status": {"type": "array", "items": {"type": "string"}},
    "priority": {"type": "array", "items": {"type": "string"}},
    "maxResults": {"type": "integer", "minimum": 1},
    "threshold": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const jiraCountSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "projectKey": {"type": "string"},
    "status": {"type": "array", "items": {"type": "string"}},
    "priority": {"type": "array", "items": {"type": "string"}}
  }
}`

const searchCommitsSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "repository": {"type": "array", "items": {"type": "string"}},
    "author": {"type": "array", "items": {"type": "string"}},
    "dateFrom": {"type": "string"},
    "dateTo": {"type": "string"},
    "filePattern": {"type": "string"},
    "maxResults": {"type": "integer", "minimum": 1},
    "threshold": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const searchCodeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "repository": {"type": "array", "items": {"type": "string"}},
    "language": {"type": "array", "items": {"type": "string"}},
    "fileExtension": {"type": "array", "items": {"type": "string"}},
    "maxResults": {"type": "integer", "minimum": 1},
    "threshold": {"type": "number", "minimum": 0, "maximum": 1}
  }
}`

const analyzeContextSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["currentTask"],
  "properties": {
    "currentTask": {"type": "string", "minLength": 1, "pattern": "\\S", "description": "What the developer is working on right now"},
    "codeContext": {"type": "string", "description": "Relevant code snippet or file excerpt"},
    "systemArea": {"type": "string", "enum": ["frontend", "backend", "database", "infrastructure", "integration", "testing"]},
    "urgency": {"type": "string", "enum": ["low", "medium", "high", "critical"]}
  }
}`

const systemHealthSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "includeMetrics": {"type": "boolean"},
    "includeDiagnostics": {"type": "boolean"}
  }
}`

const capabilitiesSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "includeExamples": {"type": "boolean"}
  }
}`

const swarmAnalyzeSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "minLength": 1, "pattern": "\\S"},
    "primaryAgent": {"type": "string", "enum": ["code_specialist", "jira_analyst", "aoma_researcher", "synthesis_coordinator"]},
    "contextStrategy": {"type": "string", "enum": ["isolated", "shared", "selective_handoff"]},
    "maxAgentHops": {"type": "integer", "minimum": 1, "maximum": 10},
    "enableMemoryPersistence": {"type": "boolean"}
  }
}`
