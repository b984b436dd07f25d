package mcpserver

// DocumentFormatContract describes the board document format that LLM
// consumers read and edit through the tools.
const DocumentFormatContract = `# Kanboard Document Format

A board document is a UTF-8 JSON file whose name ends with ` + "`" + `.kanban.json` + "`" + `.

## Structure

` + "```" + `json
{
  "title": "Week 42",
  "description": "Release planning",
  "boards": [
    {
      "title": "To do",
      "notes": [
        {"title": "Write changelog", "content": "tags: release\n---\nSee [[release-process]]"}
      ],
      "style": {"color": "#f5a623"}
    }
  ]
}
` + "```" + `

## Rules

1. ` + "`" + `boards` + "`" + ` is an ordered array; display order is array order.
2. Every board has ` + "`" + `title` + "`" + ` (string), ` + "`" + `notes` + "`" + ` (array) and ` + "`" + `style` + "`" + ` (object of strings).
3. Every note has ` + "`" + `title` + "`" + ` and ` + "`" + `content` + "`" + ` strings. ` + "`" + `expanded: true` + "`" + ` marks an opened note.
4. Older files may be a bare array of boards. They stay in that shape when saved.
5. Unknown fields are preserved on save.
6. Note content may start with a YAML frontmatter block closed by ` + "`" + `---` + "`" + `.
   A ` + "`" + `tags` + "`" + ` key there, and ` + "`" + `#tag` + "`" + ` words in titles or text, are indexed for search.
7. ` + "`" + `[[target]]` + "`" + ` in note text references another document by its path stem.

## Identifiers

` + "`" + `read_document` + "`" + ` returns ` + "`" + `id` + "`" + ` fields for boards and notes. They are
not stored in the file and stay valid only while the server keeps the document
open. Always read the document before calling a tool that takes an id.

## Saving

Every tool that changes a document saves it immediately.
`
