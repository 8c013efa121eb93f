package query

const cypherPrompt = `Task: Generate a Cypher statement to query a graph database.
Instructions:
Use only the node labels, relationship types and properties present in the schema.
Do not use any other relationship types or properties.
Return only the Cypher statement, with no explanation and no surrounding text.
Schema:
%s

Question: %s
Cypher:`

const answerPrompt = `You answer questions about a family tree using results retrieved from its graph database.
Question: %s
Cypher query that was executed: %s
Query results (JSON): %s

Answer the question using only these results.
If the results are empty, say that the information was not found in the family tree.
Answer:`
