package keywords

// English stopword list used by the TF-IDF extractor. Kept as a package-level
// set so the tokenizer can do O(1) membership checks.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range stopwordList {
		stopwords[w] = struct{}{}
	}
}

var stopwordList = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am",
	"an", "and", "any", "are", "as", "at", "be", "because", "been", "before",
	"being", "below", "between", "both", "but", "by", "can", "cannot", "could",
	"did", "do", "does", "doing", "down", "during", "each", "either", "else",
	"few", "for", "from", "further", "had", "has", "have", "having", "he",
	"her", "here", "hers", "herself", "him", "himself", "his", "how", "however",
	"i", "if", "in", "into", "is", "it", "its", "itself", "just", "least",
	"let", "may", "me", "might", "more", "most", "must", "my", "myself",
	"neither", "no", "nor", "not", "now", "of", "off", "on", "once", "only",
	"or", "other", "otherwise", "ought", "our", "ours", "ourselves", "out",
	"over", "own", "same", "shall", "she", "should", "since", "so", "some",
	"such", "than", "that", "the", "their", "theirs", "them", "themselves",
	"then", "there", "therefore", "these", "they", "this", "those", "through",
	"thus", "to", "too", "under", "until", "up", "upon", "us", "very", "was",
	"we", "were", "what", "when", "where", "whether", "which", "while", "who",
	"whom", "why", "will", "with", "within", "without", "would", "you", "your",
	"yours", "yourself", "yourselves",
}
