package live

// ClientScript keeps the page's notification stack in sync with the hub.
// The hub endpoint is read from the script's data-endpoint attribute and
// defaults to /ws.
const ClientScript = `
<script data-endpoint="/ws">
(function() {
    'use strict';

    var script = document.currentScript;
    var endpoint = (script && script.dataset.endpoint) || '/ws';
    var reconnectDelay = 1000;
    var maxReconnectDelay = 30000;
    var ws = null;

    function send(type, card) {
        if (!ws || ws.readyState !== WebSocket.OPEN || !card) {
            return;
        }
        ws.send(JSON.stringify({type: type, id: card.getAttribute('data-notification-id')}));
    }

    function replaceStack(html) {
        var current = document.getElementById('notificationStack');
        var tmp = document.createElement('div');
        tmp.innerHTML = html;
        var next = tmp.firstElementChild;
        if (!next) {
            return;
        }
        if (current) {
            current.replaceWith(next);
        } else {
            document.body.appendChild(next);
        }
    }

    document.addEventListener('click', function(e) {
        var btn = e.target.closest('.notification-close');
        if (btn) {
            send('click', btn.closest('.notification-card'));
        }
    });

    document.addEventListener('animationend', function(e) {
        if (e.target.classList && e.target.classList.contains('notification-card')) {
            send('animationend', e.target);
        }
    });

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        ws = new WebSocket(protocol + '//' + location.host + endpoint);

        ws.onopen = function() {
            reconnectDelay = 1000;
        };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'stack') {
                replaceStack(msg.html);
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                reconnectDelay = Math.min(reconnectDelay * 2, maxReconnectDelay);
                connect();
            }, reconnectDelay);
        };

        ws.onerror = function() {
            ws.close();
        };
    }

    if (document.readyState === 'loading') {
        document.addEventListener('DOMContentLoaded', connect);
    } else {
        connect();
    }
})();
</script>
`
