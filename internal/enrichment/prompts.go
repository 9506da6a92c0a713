package enrichment

const sentimentSystemPrompt = `You are a media monitoring analyst. You score the sentiment of social media posts and news snippets.

Always respond with valid JSON. Do not include any text outside the JSON object.`

// sentimentUserPrompt takes the mention content
const sentimentUserPrompt = `Analyze the sentiment of this content.

- **score**: a number from -1 (very negative) to 1 (very positive)
- **label**: exactly one of "positive", "negative", "neutral", "mixed"
- **emotions**: up to 3 dominant emotions, e.g. ["joy", "anger"]

Content:
---
%s
---

Respond with JSON only:
{"score":0.0,"label":"...","emotions":[...]}`

const entitiesSystemPrompt = `You extract named entities from social media posts and news snippets.

Always respond with valid JSON. Do not include any text outside the JSON object.`

// entitiesUserPrompt takes the mention content
const entitiesUserPrompt = `Extract the named entities mentioned in this content. Use empty arrays when nothing applies.

- **people**: person names
- **organizations**: companies, agencies, institutions
- **locations**: countries, cities, places
- **products**: product or brand names
- **topics**: 1-5 short topic phrases describing what the content is about

Content:
---
%s
---

Respond with JSON only:
{"people":[],"organizations":[],"locations":[],"products":[],"topics":[]}`

const translateSystemPrompt = `You are a professional translator. Translate faithfully and keep names, handles and URLs unchanged.

Always respond with valid JSON. Do not include any text outside the JSON object.`

// translateUserPrompt takes the source language, target language and content
const translateUserPrompt = `Translate this content from %s to %s.

Content:
---
%s
---

Respond with JSON only:
{"translation":"..."}`
