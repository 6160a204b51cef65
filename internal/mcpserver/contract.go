package mcpserver

// NoteFormatContract tells LLM clients what an Argument note is and how the
// tools treat it.
const NoteFormatContract = `# Argument Note Format

An Argument note is either a **text note** or an **image note**.

## Fields

- ` + "`id`" + `: opaque identifier assigned on creation. Use it with read_note, edit_note,
  delete_note, copy_note and share_note.
- ` + "`title`" + `: required, must not be blank after trimming surrounding whitespace.
- ` + "`content`" + `: free text. Plain text or Markdown, no particular structure.
- ` + "`created_at`" + ` / ` + "`modified_at`" + `: set by the server. Every edit refreshes modified_at.

## Rules

1. A note carrying image bytes is an image note. Its content is always empty and
   cannot be edited; only the title can change.
2. Image notes accept PNG, JPEG, GIF, WebP and HEIC data. Create them with
   create_image_note from a data: URI or an http(s) URL.
3. Listings are ordered by modified_at, most recent first.
4. Search is a case-insensitive substring match on title and content.
5. A note with neither content nor image has nothing to copy or share.

## Example

    create_note  title="Argument important"  content="Les chiffres du T3 montrent..."
    edit_note    id="<id>"  content="Version révisée"
    share_note   id="<id>"
`
