package hdt

// Implementation type tags carried in control blocks, and the vocabulary
// IRIs the header statements use. The values follow the published HDT
// vocabulary so containers interoperate with other readers.
const (
	DictionaryTypePlain = "<http://purl.org/HDT/hdt#dictionaryPlain>"
	DictionaryTypePFC   = "<http://purl.org/HDT/hdt#dictionaryPFC>"

	TriplesTypeList     = "<http://purl.org/HDT/hdt#triplesList>"
	TriplesTypeListDisk = "<http://purl.org/HDT/hdt#triplesListDisk>"
	TriplesTypePlain    = "<http://purl.org/HDT/hdt#triplesPlain>"
	TriplesTypeCompact  = "<http://purl.org/HDT/hdt#triplesCompact>"
	TriplesTypeBitmap   = "<http://purl.org/HDT/hdt#triplesBitmap>"

	HeaderTypePlain = "<http://purl.org/HDT/hdt#headerPlain>"
	HeaderTypeEmpty = "<http://purl.org/HDT/hdt#headerEmpty>"
)

// Header vocabulary.
const (
	RDFType = "<http://www.w3.org/1999/02/22-rdf-syntax-ns#type>"

	HDTDataset                = "<http://purl.org/HDT/hdt#Dataset>"
	HDTFormatInformation      = "<http://purl.org/HDT/hdt#formatInformation>"
	HDTDictionary             = "<http://purl.org/HDT/hdt#dictionary>"
	HDTTriples                = "<http://purl.org/HDT/hdt#triples>"
	HDTStatisticalInformation = "<http://purl.org/HDT/hdt#statisticalInformation>"
	HDTPublicationInformation = "<http://purl.org/HDT/hdt#publicationInformation>"

	HDTOriginalSize = "<http://purl.org/HDT/hdt#originalSize>"
	HDTSize         = "<http://purl.org/HDT/hdt#hdtSize>"

	DictNumShared     = "<http://purl.org/HDT/hdt#dictionarynumSharedSubjectObject>"
	DictNumSubjects   = "<http://purl.org/HDT/hdt#dictionarynumSubjects>"
	DictNumPredicates = "<http://purl.org/HDT/hdt#dictionarynumPredicates>"
	DictNumObjects    = "<http://purl.org/HDT/hdt#dictionarynumObjects>"
	DictSizeStrings   = "<http://purl.org/HDT/hdt#dictionarysizeStrings>"

	TriplesNumTriples = "<http://purl.org/HDT/hdt#triplesnumTriples>"
	TriplesOrder      = "<http://purl.org/HDT/hdt#triplesOrder>"

	DublinCoreIssued = "<http://purl.org/dc/terms/issued>"
)

// Spec keys recognized by the façades.
const (
	SpecDictionaryType = "dictionary.type"
	SpecTriplesType    = "triples.type"
	SpecTriplesOrder   = "triples.component.order"
	SpecNoHeader       = "noheader"
	SpecPFCBlockSize   = "pfc.blocksize"
	SpecDiskLocation   = "triples.disk.location"
)
