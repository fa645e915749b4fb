package workflow

// documentSchema is the JSON Schema every workflow document must satisfy
// before decoding. It pins the required shape (name, nodes with ids and
// types, edges with targets) while leaving additionalProperties open, so
// planner-generated documents carrying extra informational fields are
// tolerated.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "nodes"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "version": {"type": "string"},
    "variables": {"type": "object"},
    "nodes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "input": {"type": "object"},
          "params": {"type": "object"},
          "edges": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["nextNodeId"],
              "properties": {
                "nextNodeId": {"type": "string"},
                "relationDescription": {"type": "string"},
                "invokeCondition": {"type": "string"}
              }
            }
          }
        }
      }
    }
  }
}`
