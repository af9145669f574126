package agent

// Fixed short-circuit replies. These never reach the model; they are the
// complete response for their intent.
const (
	injectionResponse = "Não posso atender esse tipo de pedido. Sigo as minhas " +
		"diretrizes originais independentemente de quem esteja pedindo, mas fico " +
		"feliz em ajudar com seus estudos e projetos."

	authMethodResponse = "Você pode entrar usando sua conta do Google na tela de " +
		"login. É o jeito mais rápido: não precisa criar nem memorizar uma senha nova."

	originResponse = "Fui criado pela equipe deste aplicativo para ser seu " +
		"assistente de estudos pessoal. Aprendo com as nossas conversas para " +
		"responder cada vez mais do seu jeito."
)
