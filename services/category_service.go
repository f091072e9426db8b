package services

import (
	"strings"

	"pricehound/models"

	"go.uber.org/zap"
)

type categoryKeywords struct {
	category models.Category
	keywords []string
}

// categoryTable is scanned in order; on equal scores the earlier category wins.
var categoryTable = []categoryKeywords{
	{models.CategoryElectronics, []string{
		"smartphone", "celular", "iphone", "samsung", "xiaomi", "motorola",
		"notebook", "laptop", "computador", "pc", "desktop", "monitor",
		"tv", "televisão", "tablet", "ipad", "kindle", "fone", "headphone",
		"mouse", "teclado", "webcam", "câmera", "camera", "gopro",
		"console", "playstation", "xbox", "nintendo", "videogame",
		"processador", "memória", "ram", "ssd", "hd", "placa de vídeo",
		"gabinete", "fonte", "cooler", "ventilador", "ar condicionado",
	}},
	{models.CategoryClothing, []string{
		"camiseta", "camisa", "calça", "short", "bermuda", "jaqueta",
		"blusa", "vestido", "saia", "meia", "cueca", "sutiã", "calcinha",
		"tênis", "sapato", "bota", "chinelo", "sandália", "sapatilha",
		"óculos", "relógio", "pulseira", "colar", "brinco", "anel",
		"mochila", "bolsa", "carteira", "cinto", "chapéu", "boné",
		"casaco", "blazer", "cardigan", "suéter", "moletom", "agasalho",
		"salto", "rasteirinha", "mocassim", "oxford", "sneaker",
		"nike", "adidas", "puma", "reebok", "under armour", "mizuno",
		"asics", "new balance", "vans", "converse", "oakley",
		"polo", "regata", "legging", "top", "fitness", "esportivo",
		"corrida", "running", "training", "casual", "streetwear",
		"jeans", "social", "alfaiataria", "blazer", "terno", "gravata",
	}},
	{models.CategorySports, []string{
		"academia", "musculação", "cardio", "esteira", "bicicleta",
		"halteres", "peso", "kettlebell", "corda", "pular corda",
		"futebol", "basquete", "vôlei", "tênis", "ping pong", "badminton",
		"natação", "corrida", "caminhada", "hiking", "trekking",
		"equipamento", "acessório", "proteção", "capacete", "joelheira",
	}},
	{models.CategoryBooks, []string{
		"livro", "book", "ebook", "romance", "ficção", "não-ficção",
		"biografia", "autobiografia", "história", "literatura", "poesia",
		"didático", "escolar", "universitário", "enciclopédia", "dicionário",
		"revista", "quadrinhos", "mangá", "hq", "graphic novel",
	}},
	{models.CategoryHealthAndBeauty, []string{
		"perfume", "fragrância", "eau de toilette", "eau de parfum",
		"eau de cologne", "parfum", "colônia", "essência", "aroma",
		"fragrance", "toilette", "cologne", "perfumaria", "cosmético",
		"loção", "desodorante", "antitranspirante", "hidratante corporal",
		"vitamina", "suplemento", "proteína", "whey", "creatina",
		"omega", "colágeno", "magnésio", "zinco", "ferro", "cálcio",
		"medicamento", "remédio", "antibiótico", "analgésico",
		"termômetro", "pressão", "glicose", "teste", "máscara",
		"álcool gel", "antisséptico", "curativo", "band-aid",
		"maquiagem", "batom", "base", "pó", "sombra", "rímel",
		"delineador", "blush", "corretivo", "primer", "iluminador",
		"esmalte", "unha", "cutícula", "creme", "sérum", "hidratante",
		"protetor solar", "filtro solar", "esfoliante", "máscara facial",
		"tônico", "gel", "óleo", "shampoo", "condicionador",
	}},
	{models.CategoryHomeAndGarden, []string{
		"sofá", "mesa", "cadeira", "armário", "guarda-roupa", "cama",
		"colchão", "travesseiro", "lençol", "edredom", "cobertor",
		"cortina", "tapete", "luminária", "abajur", "quadro", "espelho",
		"vaso", "planta", "decoração", "ornamento", "candeeiro",
		"mesa de centro", "estante", "prateleira", "gaveteiro",
	}},
	{models.CategoryAutomotive, []string{
		"carro", "automóvel", "veículo", "pneu", "bateria", "óleo",
		"filtro", "vela", "freio", "pastilha", "disco", "amortecedor",
		"mola", "suspensão", "direção", "motor", "câmbio", "embrague",
		"escapamento", "catalisador", "muffler", "silencioso",
		"lâmpada", "farol", "lanterna", "sinalizador", "retrovisor",
	}},
}

var (
	generalistSources  = []models.SourceID{models.SourceAmazon, models.SourceMercadoLivre}
	electronicsSources = []models.SourceID{models.SourceKabum}
	fashionSources     = []models.SourceID{models.SourceNetshoes}
)

// CategoryService infers product categories and picks the sources worth querying.
type CategoryService struct {
	logger *zap.Logger
}

// NewCategoryService creates a new category service
func NewCategoryService(logger *zap.Logger) *CategoryService {
	return &CategoryService{logger: logger.Named("category")}
}

// Classify scores every category by the number of its keywords found in name and url.
// Keywords match anywhere, including inside longer words. Without any match the
// result is electronics.
func (s *CategoryService) Classify(name, url string) models.Category {
	category, score := classify(name, url)
	s.logger.Debug("category detected",
		zap.String("name", name),
		zap.String("category", string(category)),
		zap.Int("score", score),
	)
	return category
}

func classify(name, url string) (models.Category, int) {
	text := strings.ToLower(name + " " + url)

	best, bestScore := models.CategoryElectronics, 0
	for _, entry := range categoryTable {
		score := 0
		for _, keyword := range entry.keywords {
			if strings.Contains(text, keyword) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = entry.category, score
		}
	}
	return best, bestScore
}

// SelectSources returns the generalist sources followed by the specialists of category.
func (s *CategoryService) SelectSources(category models.Category) []models.SourceID {
	sources := append([]models.SourceID(nil), generalistSources...)
	switch category {
	case models.CategoryElectronics:
		sources = append(sources, electronicsSources...)
	case models.CategoryClothing, models.CategorySports:
		sources = append(sources, fashionSources...)
	}
	return sources
}
